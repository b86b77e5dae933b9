package servicectl

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/google/renameio/v2"
	"golang.org/x/crypto/ssh"
)

// EnsureKeypair generates the daemon's ed25519 keypair under the state
// directory if none exists and returns the OpenSSH-encoded public key.
// An existing key is never touched or regenerated: distributed public
// keys must stay valid across reinstalls. created reports whether a new
// pair was written.
func EnsureKeypair(paths PathSet) (publicKey string, created bool, err error) {
	if data, err := os.ReadFile(paths.PublicKeyPath()); err == nil {
		return string(data), false, nil
	}
	if _, err := os.Stat(paths.PrivateKeyPath()); err == nil {
		// private half exists but the public file is gone; re-derive
		// rather than regenerate
		return rederivePublic(paths)
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", false, fmt.Errorf("generating keypair: %w", err)
	}

	block, err := ssh.MarshalPrivateKey(priv, ServiceName+" daemon key")
	if err != nil {
		return "", false, fmt.Errorf("encoding private key: %w", err)
	}
	if err := renameio.WriteFile(paths.PrivateKeyPath(), pem.EncodeToMemory(block), PrivateKeyMode); err != nil {
		return "", false, fmt.Errorf("writing private key: %w", err)
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return "", false, fmt.Errorf("encoding public key: %w", err)
	}
	encoded := ssh.MarshalAuthorizedKey(sshPub)
	if err := renameio.WriteFile(paths.PublicKeyPath(), encoded, PublicKeyMode); err != nil {
		return "", false, fmt.Errorf("writing public key: %w", err)
	}

	return string(encoded), true, nil
}

// rederivePublic reconstructs the public key file from the private key.
func rederivePublic(paths PathSet) (string, bool, error) {
	data, err := os.ReadFile(paths.PrivateKeyPath())
	if err != nil {
		return "", false, fmt.Errorf("reading private key: %w", err)
	}
	priv, err := ssh.ParseRawPrivateKey(data)
	if err != nil {
		return "", false, fmt.Errorf("parsing private key: %w", err)
	}
	edPriv, ok := priv.(*ed25519.PrivateKey)
	if !ok {
		return "", false, fmt.Errorf("unexpected private key type %T", priv)
	}
	sshPub, err := ssh.NewPublicKey(edPriv.Public())
	if err != nil {
		return "", false, fmt.Errorf("encoding public key: %w", err)
	}
	encoded := ssh.MarshalAuthorizedKey(sshPub)
	if err := renameio.WriteFile(paths.PublicKeyPath(), encoded, PublicKeyMode); err != nil {
		return "", false, fmt.Errorf("writing public key: %w", err)
	}
	return string(encoded), false, nil
}
