//go:build windows
// +build windows

package txn

import (
	"os"
)

// checkSameDevice checks if two paths are on the same filesystem device
func checkSameDevice(s1, s2 os.FileInfo) (bool, error) {
	// TODO: compare volume serial numbers via GetFileInformationByHandle
	return true, nil
}
