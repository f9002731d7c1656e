// Package bucketpolicy holds S3 bucket policy documents shared by the storage drivers
package bucketpolicy

import (
	"encoding/json"
	"fmt"
)

// PublicRead returns an S3 bucket policy JSON that allows anonymous GET on all objects.
func PublicRead(bucket string) string {
	policy := map[string]any{
		"Version": "2012-10-17",
		"Statement": []map[string]any{
			{
				"Effect":    "Allow",
				"Principal": map[string][]string{"AWS": {"*"}},
				"Action":    []string{"s3:GetObject"},
				"Resource":  []string{fmt.Sprintf("arn:aws:s3:::%s/*", bucket)},
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
