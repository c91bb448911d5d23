package testutil

import (
	"ids-go/internal/encryption"
	"ids-go/internal/ids"
)

// TestPassphrase unlocks encryptors created by NewTestEncryptor.
const TestPassphrase = "correct horse battery staple"

// NewTestEncryptor creates a test encryptor already set up with TestPassphrase.
func NewTestEncryptor() ids.Encryptor {
	enc := encryption.NewTestEncryptor()
	_ = enc.Setup(TestPassphrase)
	return enc
}
