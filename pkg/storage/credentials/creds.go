package credentials

// Creds carries per-backend secrets and endpoints for storage targets.
type Creds struct {
	AWSEndpoint string
	AWSRegion   string
	// AWSPathStyle addresses buckets as host/bucket, needed by most S3-compatible servers.
	AWSPathStyle   bool
	SMBCredentials string
}
