package keys

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// KeyStore keeps signing keys as PEM files on the local filesystem.
//
// Layout:
//
//	<Directory>/<name>/private.pem   (optional, 0600)
//	<Directory>/<name>/public.pem
//
// A name with only public.pem is a pinned verification key.
type KeyStore struct {
	Directory string
}

// KeyEntry summarizes one stored key.
type KeyEntry struct {
	Name        string
	Curve       Curve
	Fingerprint string
	HasPrivate  bool
}

// ErrKeyNotFound is returned when a named key has no file on disk.
var ErrKeyNotFound = errors.New("key not found")

func GetDefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".xdao", "cred", "keys"), nil
}

func CreateKeyStore(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		directory, err = GetDefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

func (ks *KeyStore) privatePath(name string) string {
	return filepath.Join(ks.Directory, name, "private.pem")
}

func (ks *KeyStore) publicPath(name string) string {
	return filepath.Join(ks.Directory, name, "public.pem")
}

func CheckKeyName(name string) error {
	if name == "" {
		return errors.New("key name cannot be empty")
	}
	for _, char := range name {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' || char == '.' {
			continue
		}
		return fmt.Errorf("invalid character %q in key name", char)
	}
	if name[0] == '.' {
		return errors.New("key name cannot start with '.'")
	}
	return nil
}

func writePEM(path, text string, perm os.FileMode, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, perm)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.WriteString(text); err != nil {
		return err
	}
	return file.Close()
}

func readPEM(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrKeyNotFound
		}
		return "", err
	}
	return string(data), nil
}

// SavePrivate stores priv and its public half under name.
func (ks *KeyStore) SavePrivate(name string, priv *PrivateKey, overwrite bool) error {
	if err := CheckKeyName(name); err != nil {
		return err
	}
	privPEM, err := priv.MarshalPEM()
	if err != nil {
		return err
	}
	pubPEM, err := priv.Public.MarshalPEM()
	if err != nil {
		return err
	}
	if err := writePEM(ks.privatePath(name), privPEM, 0o600, overwrite); err != nil {
		return err
	}
	return writePEM(ks.publicPath(name), pubPEM, 0o644, overwrite)
}

// ImportPrivate parses a private key PEM and stores it under name.
func (ks *KeyStore) ImportPrivate(name, text string, overwrite bool) (*PrivateKey, error) {
	priv, err := ParsePrivateKeyPEM(text)
	if err != nil {
		return nil, err
	}
	if err := ks.SavePrivate(name, priv, overwrite); err != nil {
		return nil, err
	}
	return priv, nil
}

// Pin stores a public key under name so it can verify without network access.
func (ks *KeyStore) Pin(name, text string, overwrite bool) (*PublicKey, error) {
	if err := CheckKeyName(name); err != nil {
		return nil, err
	}
	pub, err := ParsePublicKeyPEM(text)
	if err != nil {
		return nil, err
	}
	pubPEM, err := pub.MarshalPEM()
	if err != nil {
		return nil, err
	}
	if err := writePEM(ks.publicPath(name), pubPEM, 0o644, overwrite); err != nil {
		return nil, err
	}
	return pub, nil
}

// Generate creates and stores a fresh key pair.
func (ks *KeyStore) Generate(name string, curve Curve, overwrite bool) (*PrivateKey, error) {
	if err := CheckKeyName(name); err != nil {
		return nil, err
	}
	priv, err := GenerateKey(curve, nil)
	if err != nil {
		return nil, err
	}
	if err := ks.SavePrivate(name, priv, overwrite); err != nil {
		return nil, err
	}
	return priv, nil
}

// PrivatePEM returns the stored private key PEM for name.
func (ks *KeyStore) PrivatePEM(name string) (string, error) {
	if err := CheckKeyName(name); err != nil {
		return "", err
	}
	return readPEM(ks.privatePath(name))
}

// PublicPEM returns the stored public key PEM for name.
func (ks *KeyStore) PublicPEM(name string) (string, error) {
	if err := CheckKeyName(name); err != nil {
		return "", err
	}
	return readPEM(ks.publicPath(name))
}

// LoadPrivate parses the stored private key for name.
func (ks *KeyStore) LoadPrivate(name string) (*PrivateKey, error) {
	text, err := ks.PrivatePEM(name)
	if err != nil {
		return nil, err
	}
	return ParsePrivateKeyPEM(text)
}

// LoadPublic parses the stored public key for name.
func (ks *KeyStore) LoadPublic(name string) (*PublicKey, error) {
	text, err := ks.PublicPEM(name)
	if err != nil {
		return nil, err
	}
	return ParsePublicKeyPEM(text)
}

// List returns every stored key sorted by name. Unreadable entries are skipped.
func (ks *KeyStore) List() ([]KeyEntry, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() && CheckKeyName(entry.Name()) == nil {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var result []KeyEntry
	for _, name := range names {
		pub, err := ks.LoadPublic(name)
		if err != nil {
			continue
		}
		_, statErr := os.Stat(ks.privatePath(name))
		result = append(result, KeyEntry{
			Name:        name,
			Curve:       pub.Curve,
			Fingerprint: pub.Fingerprint(),
			HasPrivate:  statErr == nil,
		})
	}
	return result, nil
}
