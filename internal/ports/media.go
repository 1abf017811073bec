package ports

import "context"

// MediaFetcher retrieves remote media. A non-200 response is not an error;
// callers inspect the returned status code.
type MediaFetcher interface {
	Fetch(ctx context.Context, url string) (status int, body []byte, err error)
}

// FileStore caches fetched media and returns a reference to the stored file.
type FileStore interface {
	Save(ctx context.Context, filename string, data []byte) (string, error)
}

// SenderCipher seals sender identifiers at rest.
type SenderCipher interface {
	Seal(plain string) (string, error)
	Open(sealed string) (string, error)
}
