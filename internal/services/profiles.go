package services

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lingopane/lingopane-backend/internal/logger"
)

// ModelProfile describes one selectable translation backend configuration.
// Profiles are declarative so operators can add providers without a deploy;
// the user's own API key (BYOK) is supplied per request, never stored here.
type ModelProfile struct {
	Name         string  `yaml:"name"`
	Provider     string  `yaml:"provider"`
	BaseURL      string  `yaml:"base_url"`
	Model        string  `yaml:"model"`
	Temperature  float64 `yaml:"temperature"`
	SystemPrompt string  `yaml:"system_prompt"`
}

type profilesFile struct {
	Profiles []ModelProfile `yaml:"profiles"`
	Default  string         `yaml:"default"`
}

type ProfileRegistry struct {
	log         *logger.Logger
	profiles    map[string]ModelProfile
	defaultName string
}

func NewProfileRegistry(log *logger.Logger) (*ProfileRegistry, error) {
	regLog := log.With("service", "ProfileRegistry")
	path := strings.TrimSpace(os.Getenv("MODEL_PROFILES_PATH"))

	reg := &ProfileRegistry{
		log:      regLog,
		profiles: map[string]ModelProfile{},
	}

	if path == "" {
		reg.addDefaults()
		regLog.Info("MODEL_PROFILES_PATH not set, using built-in profiles")
		return reg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model profiles: %w", err)
	}
	var parsed profilesFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse model profiles: %w", err)
	}
	if len(parsed.Profiles) == 0 {
		return nil, fmt.Errorf("model profiles file %s contains no profiles", path)
	}
	for _, p := range parsed.Profiles {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, fmt.Errorf("model profile with empty name in %s", path)
		}
		if strings.TrimSpace(p.BaseURL) == "" || strings.TrimSpace(p.Model) == "" {
			return nil, fmt.Errorf("model profile %q missing base_url or model", name)
		}
		reg.profiles[name] = p
	}
	reg.defaultName = strings.TrimSpace(parsed.Default)
	if reg.defaultName == "" {
		reg.defaultName = parsed.Profiles[0].Name
	}
	if _, ok := reg.profiles[reg.defaultName]; !ok {
		return nil, fmt.Errorf("default profile %q not defined", reg.defaultName)
	}
	regLog.Info("Loaded model profiles", "count", len(reg.profiles), "default", reg.defaultName)
	return reg, nil
}

func (r *ProfileRegistry) addDefaults() {
	def := ModelProfile{
		Name:        "openai-default",
		Provider:    "openai",
		BaseURL:     "https://api.openai.com",
		Model:       "gpt-4o-mini",
		Temperature: 0.2,
	}
	r.profiles[def.Name] = def
	r.defaultName = def.Name
}

func (r *ProfileRegistry) Get(name string) (ModelProfile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = r.defaultName
	}
	p, ok := r.profiles[name]
	if !ok {
		return ModelProfile{}, fmt.Errorf("unknown model profile %q", name)
	}
	return p, nil
}

func (r *ProfileRegistry) List() []ModelProfile {
	out := make([]ModelProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	return out
}

func (r *ProfileRegistry) DefaultName() string { return r.defaultName }
