package config

import (
	"os"
	"regexp"

	"github.com/ehealthMP/Omh-Schimmer/shim"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type ProvidersConfig interface {
	GetProvidersFile() string
	LoadProviders() ([]shim.ProviderConfig, error)
}

type Providers struct{}

var _ ProvidersConfig = Providers{}

// envReference matches ${VAR}. A bare $ is literal.
var envReference = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

type providersFile struct {
	Providers []shim.ProviderConfig `yaml:"providers"`
}

func (Providers) GetProvidersFile() string {
	return GetEnv("PROVIDERS_FILE", "providers.yaml")
}

// LoadProviders reads the providers file. ${VAR} references are expanded from
// the environment so client secrets stay out of the file.
func (p Providers) LoadProviders() ([]shim.ProviderConfig, error) {
	data, err := os.ReadFile(p.GetProvidersFile())
	if err != nil {
		return nil, errors.Wrap(err, "[LoadProviders] failed to read providers file")
	}
	return ParseProviders(data)
}

// ParseProviders decodes a providers document and expands ${VAR} references
// in its values. Unset variables expand to the empty string.
func ParseProviders(data []byte) ([]shim.ProviderConfig, error) {
	var file providersFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "[ParseProviders] invalid providers file")
	}

	seen := make(map[string]struct{}, len(file.Providers))
	for i := range file.Providers {
		expandProvider(&file.Providers[i])
		p := file.Providers[i]
		if p.Key == "" {
			return nil, errors.Errorf("[ParseProviders] provider %d has no key", i)
		}
		if _, ok := seen[p.Key]; ok {
			return nil, errors.Errorf("[ParseProviders] duplicate provider %s", p.Key)
		}
		seen[p.Key] = struct{}{}
	}
	return file.Providers, nil
}

func expandProvider(p *shim.ProviderConfig) {
	for _, field := range []*string{
		&p.Key, &p.Type,
		&p.RequestTokenURL, &p.AuthorizeURL, &p.AccessTokenURL,
		&p.ClientID, &p.ClientSecret,
		&p.RequestTokenMethod, &p.AccessTokenMethod,
		&p.SignatureMethod, &p.PrivateKeyFile, &p.Realm,
	} {
		*field = expandEnv(*field)
	}
	p.AuthorizeSigning = shim.AuthorizeSigning(expandEnv(string(p.AuthorizeSigning)))
}

func expandEnv(value string) string {
	return envReference.ReplaceAllStringFunc(value, func(ref string) string {
		return os.Getenv(envReference.FindStringSubmatch(ref)[1])
	})
}
