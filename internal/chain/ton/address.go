// Package ton provides TON address handling and a TonAPI client for
// account, DNS, jetton balance and rate queries.
package ton

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	remiterr "github.com/mrz1836/remit/pkg/errors"
)

const (
	// friendlyLen is the length of a base64 user-friendly address.
	friendlyLen = 48

	// friendlyBytes is the decoded size: tag, workchain, 32-byte hash, crc16.
	friendlyBytes = 36

	tagBounceable    = 0x11
	tagNonBounceable = 0x51
	tagTestnetFlag   = 0x80

	// maxDomainLen bounds DNS identifiers; TON DNS caps a domain at 126 bytes.
	maxDomainLen = 126
)

var (
	// ErrInvalidChecksum indicates the friendly address checksum did not match.
	ErrInvalidChecksum = errors.New("invalid address checksum")

	// ErrInvalidTag indicates an unknown friendly address tag byte.
	ErrInvalidTag = errors.New("invalid address tag")

	// ErrInvalidWorkchain indicates a workchain other than basechain or masterchain.
	ErrInvalidWorkchain = errors.New("invalid workchain")
)

// dnsSuffixes are the zones resolvable through TON DNS.
//
//nolint:gochecknoglobals // Read-only list
var dnsSuffixes = []string{".ton", ".t.me"}

// Address is a parsed TON account address.
type Address struct {
	Workchain  int8
	Hash       [32]byte
	Bounceable bool
	Testnet    bool
	// Friendly is true when the address was parsed from the user-friendly form,
	// in which case Bounceable reflects the sender's intent.
	Friendly bool
}

// ParseAddress parses a user-friendly (base64 or base64url) or raw
// ("workchain:hex") TON address.
func ParseAddress(s string) (*Address, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ":") {
		return parseRaw(s)
	}
	return parseFriendly(s)
}

func parseRaw(s string) (*Address, error) {
	wcPart, hashPart, _ := strings.Cut(s, ":")
	wc, err := strconv.ParseInt(wcPart, 10, 8)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidWorkchain, wcPart)
	}
	if wc != 0 && wc != -1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkchain, wc)
	}
	if len(hashPart) != 64 {
		return nil, fmt.Errorf("%w: hash must be 64 hex chars", remiterr.ErrInvalidAddress)
	}
	raw, err := hex.DecodeString(hashPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", remiterr.ErrInvalidAddress, err)
	}

	addr := &Address{Workchain: int8(wc), Bounceable: true}
	copy(addr.Hash[:], raw)
	return addr, nil
}

func parseFriendly(s string) (*Address, error) {
	if len(s) != friendlyLen {
		return nil, fmt.Errorf("%w: expected %d characters, got %d", remiterr.ErrInvalidAddress, friendlyLen, len(s))
	}

	enc := base64.StdEncoding
	if strings.ContainsAny(s, "-_") {
		enc = base64.URLEncoding
	}
	data, err := enc.DecodeString(s)
	if err != nil || len(data) != friendlyBytes {
		return nil, fmt.Errorf("%w: not valid base64", remiterr.ErrInvalidAddress)
	}

	if got, want := binary.BigEndian.Uint16(data[34:]), crc16(data[:34]); got != want {
		return nil, fmt.Errorf("%w: expected %04x, got %04x", ErrInvalidChecksum, want, got)
	}

	tag := data[0]
	addr := &Address{Friendly: true}
	if tag&tagTestnetFlag != 0 {
		addr.Testnet = true
		tag &^= tagTestnetFlag
	}
	switch tag {
	case tagBounceable:
		addr.Bounceable = true
	case tagNonBounceable:
		addr.Bounceable = false
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrInvalidTag, data[0])
	}

	addr.Workchain = int8(data[1])
	if addr.Workchain != 0 && addr.Workchain != -1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkchain, addr.Workchain)
	}
	copy(addr.Hash[:], data[2:34])
	return addr, nil
}

// Raw returns the "workchain:hex" form.
func (a *Address) Raw() string {
	return fmt.Sprintf("%d:%s", a.Workchain, hex.EncodeToString(a.Hash[:]))
}

// String returns the URL-safe user-friendly form using the address's own flags.
func (a *Address) String() string {
	return a.Format(a.Bounceable)
}

// Format returns the URL-safe user-friendly form with the given bounce flag.
func (a *Address) Format(bounceable bool) string {
	data := make([]byte, friendlyBytes)
	data[0] = tagNonBounceable
	if bounceable {
		data[0] = tagBounceable
	}
	if a.Testnet {
		data[0] |= tagTestnetFlag
	}
	data[1] = byte(a.Workchain)
	copy(data[2:34], a.Hash[:])
	binary.BigEndian.PutUint16(data[34:], crc16(data[:34]))
	return base64.URLEncoding.EncodeToString(data)
}

// IsDNSName reports whether s looks like a TON DNS identifier (*.ton, *.t.me).
func IsDNSName(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || len(s) > maxDomainLen {
		return false
	}

	var name string
	for _, suffix := range dnsSuffixes {
		if strings.HasSuffix(s, suffix) {
			name = strings.TrimSuffix(s, suffix)
			break
		}
	}
	if name == "" {
		return false
	}

	for _, label := range strings.Split(name, ".") {
		if !validLabel(label) {
			return false
		}
	}
	return true
}

func validLabel(label string) bool {
	if label == "" || label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for _, c := range label {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return false
		}
	}
	return true
}

// Validator checks TON recipient syntax. Addresses and DNS identifiers are both accepted.
type Validator struct{}

// ValidateAddress returns nil for a valid address or DNS identifier.
func (Validator) ValidateAddress(s string) error {
	if IsDNSName(s) {
		return nil
	}
	if _, err := ParseAddress(s); err != nil {
		return remiterr.WithCause(remiterr.ErrInvalidAddress, err)
	}
	return nil
}

// IsName reports whether s must be resolved before it can be sent to.
func (Validator) IsName(s string) bool {
	return IsDNSName(s)
}

// crc16 computes CRC-16/XMODEM (poly 0x1021, init 0).
func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for range 8 {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
