package gpg_test

import (
	"encoding/hex"
	"os"
)

func bytesToHex(b []byte) string {
	return hex.EncodeToString(b)
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o600)
}
