package signer

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip32"
	"golang.org/x/crypto/pbkdf2"

	"github.com/mrz1836/remit/internal/chain/tron"
)

const (
	tonSeedSalt       = "TON default seed"
	tonSeedIterations = 100000
	tronCoinType      = 195

	bip39Salt       = "mnemonic"
	bip39Iterations = 2048
)

// DeriveTONKey derives the wallet's ed25519 key using the TON mnemonic
// scheme: HMAC-SHA512 of the phrase gives the entropy, PBKDF2 stretches it
// and the first 32 bytes seed the key. phrase must be normalized.
func DeriveTONKey(phrase []byte) ed25519.PrivateKey {
	mac := hmac.New(sha512.New, phrase)
	entropy := mac.Sum(nil)
	defer wipe(entropy)

	seed := pbkdf2.Key(entropy, []byte(tonSeedSalt), tonSeedIterations, 64, sha512.New)
	defer wipe(seed)

	return ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize])
}

// DeriveTRONKey derives the secp256k1 key at m/44'/195'/0'/0/0 from the
// BIP39 seed of the phrase. phrase must be normalized.
func DeriveTRONKey(phrase []byte) (*ecdsa.PrivateKey, error) {
	seed := bip39Seed(phrase)
	defer wipe(seed)

	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("deriving master key: %w", err)
	}

	path := []uint32{
		bip32.FirstHardenedChild + 44,
		bip32.FirstHardenedChild + tronCoinType,
		bip32.FirstHardenedChild,
		0,
		0,
	}
	for _, idx := range path {
		key, err = key.NewChildKey(idx)
		if err != nil {
			return nil, fmt.Errorf("deriving child %d: %w", idx, err)
		}
	}

	priv, err := crypto.ToECDSA(key.Key)
	if err != nil {
		return nil, fmt.Errorf("converting key: %w", err)
	}
	return priv, nil
}

// bip39Seed is the BIP39 seed with an empty passphrase. It works on the
// phrase bytes so the mnemonic is never copied into a string.
func bip39Seed(phrase []byte) []byte {
	return pbkdf2.Key(phrase, []byte(bip39Salt), bip39Iterations, 64, sha512.New)
}

// TRONAddress returns the base58check address of a secp256k1 public key.
func TRONAddress(pub *ecdsa.PublicKey) string {
	return tron.AddressFromEVM(crypto.PubkeyToAddress(*pub)).String()
}
