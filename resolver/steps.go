package resolver

import (
	"context"
	"net/url"
	"strings"

	"xdao.co/cred/fetch"
)

const (
	DefaultDNSEndpoint   = "https://dns.google/resolve"
	DefaultKeyRepository = "https://raw.githubusercontent.com/Path-Check/paper-cred/main/keys/"
)

// Step is one source in the resolution chain. A nil record with a nil error
// means the source has no key for keyID.
type Step interface {
	Kind() SourceKind
	Lookup(ctx context.Context, keyID string) (*KeyRecord, error)
}

// DNSStep reads the key from the TXT record of the domain named keyID.
type DNSStep struct {
	Fetcher  fetch.Fetcher
	Endpoint string
}

type dnsAnswer struct {
	Name string `json:"name"`
	Type int    `json:"type"`
	Data string `json:"data"`
}

type dnsResponse struct {
	Status int         `json:"Status"`
	Answer []dnsAnswer `json:"Answer"`
}

func (s DNSStep) Kind() SourceKind { return SourceDNS }

func (s DNSStep) queryURL(keyID string) string {
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultDNSEndpoint
	}
	return endpoint + "?name=" + url.QueryEscape(keyID) + "&type=TXT"
}

func (s DNSStep) Lookup(ctx context.Context, keyID string) (*KeyRecord, error) {
	origin := s.queryURL(keyID)
	var resp dnsResponse
	if err := s.Fetcher.JSON(ctx, origin, &resp); err != nil {
		return nil, err
	}
	if len(resp.Answer) == 0 {
		return nil, nil
	}
	text := txtToPEM(resp.Answer[0].Data)
	if text == "" {
		return nil, nil
	}
	rec := NewRecord(keyID, SourceDNS, text, origin)
	return &rec, nil
}

// txtToPEM undoes DNS TXT presentation: surrounding quotes are removed,
// character-string chunks ("a" "b") are joined and literal \n sequences
// become newlines. A bare base64 body gets PEM armor.
func txtToPEM(data string) string {
	s := strings.TrimSpace(data)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, `" "`, "")
	s = strings.ReplaceAll(s, `\n`, "\n")
	if s == "" {
		return ""
	}
	if !hasArmor(s) {
		s = pemBegin + "\n" + s + "\n" + pemEnd + "\n"
	}
	return s
}

// URLStep treats keyID as a host and path serving the PEM over HTTPS.
type URLStep struct {
	Fetcher fetch.Fetcher
}

func (s URLStep) Kind() SourceKind { return SourceURL }

func (s URLStep) Lookup(ctx context.Context, keyID string) (*KeyRecord, error) {
	origin := "https://" + keyID
	body, err := s.Fetcher.Text(ctx, origin)
	if err != nil {
		return nil, err
	}
	if !hasArmor(body) {
		return nil, nil
	}
	rec := NewRecord(keyID, SourceURL, body, origin)
	return &rec, nil
}

// RepoStep reads <Base><group>/<id>.pem, where id is keyID up to the first
// "." and group is the label after it.
type RepoStep struct {
	Fetcher fetch.Fetcher
	Base    string
}

func (s RepoStep) Kind() SourceKind { return SourceRepo }

// RepoPath splits keyID into its repository path, e.g. "1A9.PCF.PW" is
// "PCF/1A9.pem". ok is false when keyID has no group label.
func RepoPath(keyID string) (path string, ok bool) {
	labels := strings.Split(keyID, ".")
	if len(labels) < 2 || labels[0] == "" || labels[1] == "" {
		return "", false
	}
	return labels[1] + "/" + labels[0] + ".pem", true
}

func (s RepoStep) Lookup(ctx context.Context, keyID string) (*KeyRecord, error) {
	path, ok := RepoPath(keyID)
	if !ok {
		return nil, nil
	}
	base := s.Base
	if base == "" {
		base = DefaultKeyRepository
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	origin := base + path
	body, err := s.Fetcher.Text(ctx, origin)
	if err != nil {
		return nil, err
	}
	if !hasArmor(body) {
		return nil, nil
	}
	rec := NewRecord(keyID, SourceRepo, body, origin)
	return &rec, nil
}
