package utils

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPutter struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (p *recordingPutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if p.err != nil {
		return nil, p.err
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	p.inputs = append(p.inputs, params)
	p.bodies = append(p.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func TestR2ArchiveWritesJSONObject(t *testing.T) {
	putter := &recordingPutter{}
	archive := &R2Archive{client: putter, bucket: "ledger-audit"}

	record := map[string]any{"tx_hash": "0xabc", "exp_amount": 15}
	require.NoError(t, archive.Archive(context.Background(), "conversions", "c-1", record))

	require.Len(t, putter.inputs, 1)
	in := putter.inputs[0]
	assert.Equal(t, "ledger-audit", aws.ToString(in.Bucket))
	assert.Equal(t, "conversions/c-1.json", aws.ToString(in.Key))
	assert.Equal(t, "application/json", aws.ToString(in.ContentType))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(putter.bodies[0], &decoded))
	assert.Equal(t, "0xabc", decoded["tx_hash"])
}

func TestR2ArchiveUploadError(t *testing.T) {
	archive := &R2Archive{client: &recordingPutter{err: errors.New("403")}, bucket: "b"}

	err := archive.Archive(context.Background(), "redemptions", "r-1", struct{}{})
	assert.ErrorContains(t, err, "failed to upload to R2")
}

func TestR2ArchiveEncodeError(t *testing.T) {
	putter := &recordingPutter{}
	archive := &R2Archive{client: putter, bucket: "b"}

	err := archive.Archive(context.Background(), "conversions", "x", make(chan int))
	assert.Error(t, err)
	assert.Empty(t, putter.inputs)
}
