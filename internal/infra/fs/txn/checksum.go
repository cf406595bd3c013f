package txn

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

// ChecksumAlgorithm represents the hashing algorithm used
type ChecksumAlgorithm string

const (
	// ChecksumSHA256 is the default checksum algorithm
	ChecksumSHA256 ChecksumAlgorithm = "sha256"
)

// ErrChecksumMismatch is returned when a file does not match its recorded checksum
var ErrChecksumMismatch = errors.New("checksum mismatch")

// FileChecksum represents a file's checksum information
type FileChecksum struct {
	Algorithm ChecksumAlgorithm `json:"algorithm"`
	Value     string            `json:"value"` // hex
	Size      int64             `json:"size"`
}

// ChecksumBytes computes the checksum of data
func ChecksumBytes(data []byte) *FileChecksum {
	sum := sha256.Sum256(data)
	return &FileChecksum{
		Algorithm: ChecksumSHA256,
		Value:     hex.EncodeToString(sum[:]),
		Size:      int64(len(data)),
	}
}

// CalculateFileChecksum computes checksum for a file
func CalculateFileChecksum(filePath string) (*FileChecksum, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file for checksum: %w", err)
	}
	defer file.Close()

	hash := sha256.New()
	n, err := io.Copy(hash, file)
	if err != nil {
		return nil, fmt.Errorf("calculate sha256: %w", err)
	}

	return &FileChecksum{
		Algorithm: ChecksumSHA256,
		Value:     hex.EncodeToString(hash.Sum(nil)),
		Size:      n,
	}, nil
}

// ValidateFileChecksum verifies a file against expected checksum
func ValidateFileChecksum(filePath string, expected *FileChecksum) error {
	if expected == nil {
		return errors.New("no expected checksum provided")
	}
	if expected.Algorithm != ChecksumSHA256 {
		return fmt.Errorf("unsupported checksum algorithm: %s", expected.Algorithm)
	}

	actual, err := CalculateFileChecksum(filePath)
	if err != nil {
		return err
	}
	if actual.Size != expected.Size || actual.Value != expected.Value {
		return fmt.Errorf("%w: %s: expected %s (%d bytes), got %s (%d bytes)",
			ErrChecksumMismatch, filePath, expected.Value, expected.Size, actual.Value, actual.Size)
	}
	return nil
}
