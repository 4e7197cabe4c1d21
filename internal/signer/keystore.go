package signer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"filippo.io/age"

	"github.com/mrz1836/remit/internal/chain"
	"github.com/mrz1836/remit/internal/chain/ton"
	"github.com/mrz1836/remit/internal/fileutil"
	remiterr "github.com/mrz1836/remit/pkg/errors"
)

const (
	keystoreFileExtension = ".keystore"
	keystoreFilePerm      = 0o600
)

var (
	// ErrWalletExists indicates an import would overwrite a stored wallet.
	ErrWalletExists = errors.New("wallet already exists")

	walletIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
)

// Wallet is the plaintext part of a keystore entry.
type Wallet struct {
	ID        string              `json:"id"`
	CreatedAt time.Time           `json:"created_at"`
	Addresses map[chain.ID]string `json:"addresses"`
}

type keystoreFile struct {
	Wallet            *Wallet `json:"wallet"`
	EncryptedMnemonic []byte  `json:"encrypted_mnemonic"`
}

// Keystore stores age-encrypted mnemonics, one file per wallet.
type Keystore struct {
	dir        string
	workFactor int
}

// NewKeystore creates a keystore rooted at dir.
func NewKeystore(dir string) *Keystore {
	return &Keystore{dir: dir}
}

// SetWorkFactor sets the scrypt log2 work factor for new entries.
// Zero keeps the age default.
func (k *Keystore) SetWorkFactor(logN int) {
	k.workFactor = logN
}

// ValidateWalletID checks that id is usable as a file name.
func ValidateWalletID(id string) error {
	if !walletIDRegex.MatchString(id) {
		return remiterr.WithDetails(remiterr.ErrInvalidInput, map[string]string{
			"reason": "wallet id must match [a-zA-Z0-9_-]{1,64}",
		})
	}
	return nil
}

// Import encrypts mnemonic under password and stores it with the wallet's
// addresses. The TON address is supplied by the caller because it depends
// on the deployed wallet contract and is stored non-bounceable; the TRON
// address is derived.
func (k *Keystore) Import(id, mnemonic string, password []byte, tonAddress string) (*Wallet, error) {
	if err := ValidateWalletID(id); err != nil {
		return nil, err
	}
	if len(password) == 0 {
		return nil, remiterr.WithDetails(remiterr.ErrInvalidInput, map[string]string{"reason": "password is empty"})
	}
	if err := ValidateMnemonic(mnemonic); err != nil {
		return nil, err
	}
	normalized := NormalizeMnemonic(mnemonic)

	tonAddr, err := ton.ParseAddress(tonAddress)
	if err != nil {
		return nil, remiterr.WithCause(remiterr.ErrInvalidAddress, err)
	}
	tronKey, err := DeriveTRONKey([]byte(normalized))
	if err != nil {
		return nil, fmt.Errorf("deriving tron key: %w", err)
	}

	path := k.path(id)
	if _, err := os.Stat(path); err == nil {
		return nil, ErrWalletExists
	}
	encrypted, err := k.encrypt([]byte(normalized), string(password))
	if err != nil {
		return nil, fmt.Errorf("encrypting mnemonic: %w", err)
	}

	w := &Wallet{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		Addresses: map[chain.ID]string{
			chain.TON:  tonAddr.Format(false),
			chain.TRON: TRONAddress(&tronKey.PublicKey),
		},
	}
	if err := fileutil.WriteJSON(path, keystoreFile{Wallet: w, EncryptedMnemonic: encrypted}, keystoreFilePerm); err != nil {
		return nil, fmt.Errorf("writing keystore: %w", err)
	}
	return w, nil
}

// Metadata returns the wallet's plaintext metadata without decrypting.
func (k *Keystore) Metadata(id string) (*Wallet, error) {
	f, err := k.read(id)
	if err != nil {
		return nil, err
	}
	return f.Wallet, nil
}

// Unlock decrypts the wallet's mnemonic. The caller must Destroy the
// returned secret.
func (k *Keystore) Unlock(id string, password []byte) (*Wallet, *secureBytes, error) {
	f, err := k.read(id)
	if err != nil {
		return nil, nil, err
	}

	plaintext, err := decrypt(f.EncryptedMnemonic, string(password))
	if err != nil {
		return nil, nil, remiterr.WithCause(remiterr.ErrDecryptionFailed, err)
	}
	defer wipe(plaintext)

	return f.Wallet, newSecureBytes(plaintext), nil
}

// List returns the stored wallet ids, sorted.
func (k *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(k.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading keystore directory: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), keystoreFileExtension) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), keystoreFileExtension))
	}
	sort.Strings(ids)
	return ids, nil
}

func (k *Keystore) read(id string) (*keystoreFile, error) {
	if err := ValidateWalletID(id); err != nil {
		return nil, err
	}

	//nolint:gosec // G304: id validated by ValidateWalletID
	data, err := os.ReadFile(k.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, remiterr.WithDetails(remiterr.ErrKeystoreNotFound, map[string]string{"wallet": id})
	}
	if err != nil {
		return nil, fmt.Errorf("reading keystore: %w", err)
	}

	var f keystoreFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing keystore: %w", err)
	}
	if f.Wallet == nil {
		return nil, fmt.Errorf("parsing keystore: %w", remiterr.ErrConfigInvalid)
	}
	return &f, nil
}

func (k *Keystore) path(id string) string {
	return filepath.Join(k.dir, id+keystoreFileExtension)
}

func (k *Keystore) encrypt(plaintext []byte, password string) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return nil, err
	}
	if k.workFactor > 0 {
		recipient.SetWorkFactor(k.workFactor)
	}

	buf := &bytes.Buffer{}
	w, err := age.Encrypt(buf, recipient)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decrypt(ciphertext []byte, password string) ([]byte, error) {
	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return nil, err
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}
