package shim

import (
	"net/http"
	"net/url"
	"os"
	"strings"

	shimerrors "github.com/ehealthMP/Omh-Schimmer/internal/errors"
	"github.com/ehealthMP/Omh-Schimmer/oauth1"
	"github.com/pkg/errors"
)

var (
	errMissing     = errors.New("is required")
	errNotAbsolute = errors.New("must be an absolute http(s) URL")
	errBadMethod   = errors.New("must be GET or POST")
)

// ProviderConfig is the configuration of one provider integration, as read
// from the providers file.
type ProviderConfig struct {
	Key string `yaml:"key"`

	// Type selects the provider implementation; empty means Key.
	Type string `yaml:"type"`

	RequestTokenURL string `yaml:"request_token_url"`
	AuthorizeURL    string `yaml:"authorize_url"`
	AccessTokenURL  string `yaml:"access_token_url"`

	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`

	RequestTokenMethod string `yaml:"request_token_method"`
	AccessTokenMethod  string `yaml:"access_token_method"`

	SignatureMethod  string           `yaml:"signature_method"`
	PrivateKeyFile   string           `yaml:"private_key_file"`
	AuthorizeSigning AuthorizeSigning `yaml:"authorize_signing"`
	Realm            string           `yaml:"realm"`
}

// ProviderType returns Type, falling back to Key.
func (c ProviderConfig) ProviderType() string {
	if c.Type != "" {
		return strings.ToLower(c.Type)
	}
	return strings.ToLower(c.Key)
}

// ConfiguredShim is a Shim driven entirely by a ProviderConfig. Concrete
// providers embed it and add their hooks.
type ConfiguredShim struct {
	cfg ProviderConfig
}

var (
	_ Shim               = (*ConfiguredShim)(nil)
	_ AuthorizeURLSigner = (*ConfiguredShim)(nil)
)

// NewConfiguredShim validates cfg and returns a shim for it.
func NewConfiguredShim(cfg ProviderConfig) (*ConfiguredShim, error) {
	const op = "NewConfiguredShim"

	if cfg.Key == "" {
		return nil, shimerrors.New(shimerrors.KindConfiguration, op, "provider key is required")
	}
	if strings.ContainsAny(cfg.Key, "/?#& ") {
		return nil, shimerrors.New(shimerrors.KindConfiguration, op, "provider key %q must be URL safe", cfg.Key)
	}
	for name, raw := range map[string]string{
		"request_token_url": cfg.RequestTokenURL,
		"authorize_url":     cfg.AuthorizeURL,
		"access_token_url":  cfg.AccessTokenURL,
	} {
		if err := validateEndpoint(raw); err != nil {
			return nil, shimerrors.New(shimerrors.KindConfiguration, op, "%s: %s %v", cfg.Key, name, err)
		}
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, shimerrors.New(shimerrors.KindConfiguration, op, "%s: client_id and client_secret are required", cfg.Key)
	}

	var err error
	if cfg.RequestTokenMethod, err = normalizeMethod(cfg.RequestTokenMethod); err != nil {
		return nil, shimerrors.New(shimerrors.KindConfiguration, op, "%s: request_token_method %v", cfg.Key, err)
	}
	if cfg.AccessTokenMethod, err = normalizeMethod(cfg.AccessTokenMethod); err != nil {
		return nil, shimerrors.New(shimerrors.KindConfiguration, op, "%s: access_token_method %v", cfg.Key, err)
	}
	if !cfg.AuthorizeSigning.Valid() {
		return nil, shimerrors.New(shimerrors.KindConfiguration, op, "%s: unknown authorize_signing %q", cfg.Key, cfg.AuthorizeSigning)
	}
	if strings.EqualFold(cfg.SignatureMethod, oauth1.MethodRSASHA1) {
		if cfg.PrivateKeyFile == "" {
			return nil, shimerrors.New(shimerrors.KindConfiguration, op, "%s: private_key_file is required for RSA-SHA1", cfg.Key)
		}
	} else if _, err := oauth1.SignatureMethodByName(strings.ToUpper(cfg.SignatureMethod)); err != nil {
		return nil, shimerrors.Wrap(shimerrors.KindConfiguration, op, err)
	}

	return &ConfiguredShim{cfg: cfg}, nil
}

func validateEndpoint(raw string) error {
	if raw == "" {
		return errMissing
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return errNotAbsolute
	}
	return nil
}

func normalizeMethod(m string) (string, error) {
	switch strings.ToUpper(m) {
	case "", http.MethodGet:
		return http.MethodGet, nil
	case http.MethodPost:
		return http.MethodPost, nil
	}
	return "", errBadMethod
}

func (s *ConfiguredShim) ShimKey() string             { return s.cfg.Key }
func (s *ConfiguredShim) BaseRequestTokenURL() string { return s.cfg.RequestTokenURL }
func (s *ConfiguredShim) BaseAuthorizeURL() string    { return s.cfg.AuthorizeURL }
func (s *ConfiguredShim) BaseTokenURL() string        { return s.cfg.AccessTokenURL }
func (s *ConfiguredShim) ClientID() string            { return s.cfg.ClientID }
func (s *ConfiguredShim) ClientSecret() string        { return s.cfg.ClientSecret }
func (s *ConfiguredShim) RequestTokenMethod() string  { return s.cfg.RequestTokenMethod }
func (s *ConfiguredShim) AccessTokenMethod() string   { return s.cfg.AccessTokenMethod }

// AuthorizeURLSigning returns the configured mode.
func (s *ConfiguredShim) AuthorizeURLSigning() AuthorizeSigning {
	return s.cfg.AuthorizeSigning
}

// Config returns a copy of the provider configuration.
func (s *ConfiguredShim) Config() ProviderConfig {
	return s.cfg
}

// SignerOptions returns the signer options implied by the configuration.
func (s *ConfiguredShim) SignerOptions() ([]oauth1.SignerOption, error) {
	var options []oauth1.SignerOption

	if strings.EqualFold(s.cfg.SignatureMethod, oauth1.MethodRSASHA1) {
		pemData, err := os.ReadFile(s.cfg.PrivateKeyFile)
		if err != nil {
			return nil, shimerrors.Wrap(shimerrors.KindConfiguration, "SignerOptions", err)
		}
		method, err := oauth1.NewRSASHA1FromPEM(pemData)
		if err != nil {
			return nil, shimerrors.Wrap(shimerrors.KindConfiguration, "SignerOptions", err)
		}
		options = append(options, oauth1.WithSignatureMethod(method))
	} else {
		method, err := oauth1.SignatureMethodByName(strings.ToUpper(s.cfg.SignatureMethod))
		if err != nil {
			return nil, shimerrors.Wrap(shimerrors.KindConfiguration, "SignerOptions", err)
		}
		options = append(options, oauth1.WithSignatureMethod(method))
	}

	if s.cfg.Realm != "" {
		options = append(options, oauth1.WithRealm(s.cfg.Realm))
	}
	return options, nil
}

// SignerConfigurer is implemented by shims that choose their own signature
// method or realm.
type SignerConfigurer interface {
	SignerOptions() ([]oauth1.SignerOption, error)
}
