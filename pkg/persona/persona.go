package persona

import (
	"bytes"
	_ "embed"
	"io"
	"os"
	"strings"

	"github.com/huandu/go-clone"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Settings is the fixed configuration a conversation handle is created with.
// It is passed to the gateway at construction time and never edited by the user.
type Settings struct {
	Name              string  `yaml:"name"`
	Model             string  `yaml:"model"`
	SystemInstruction string  `yaml:"system_instruction"`
	Temperature       float64 `yaml:"temperature"`
	Disclaimer        string  `yaml:"disclaimer,omitempty"`
	Topics            []Topic `yaml:"topics,omitempty"`
}

// Topic is a canned question offered on an empty conversation.
type Topic struct {
	Title string `yaml:"title" json:"title"`
	Query string `yaml:"query" json:"query"`
}

const MaxTemperature = 2.0

var (
	ErrMissingModel       = errors.New("persona has no model")
	ErrMissingInstruction = errors.New("persona has no system instruction")
	ErrInvalidTemperature = errors.New("persona temperature out of range")
)

//go:embed "microsurgery.yaml"
var microsurgeryYAML []byte

// Default returns the built-in MicrosurgeryGPT persona.
func Default() *Settings {
	s, err := Load(bytes.NewReader(microsurgeryYAML))
	if err != nil {
		panic(errors.Wrap(err, "embedded persona is invalid"))
	}
	return s
}

// Load decodes and validates a persona from YAML.
func Load(r io.Reader) (*Settings, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	s := &Settings{}
	if err := dec.Decode(s); err != nil {
		return nil, errors.Wrap(err, "could not decode persona")
	}
	s.SystemInstruction = strings.TrimSpace(s.SystemInstruction)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func LoadFromFile(path string) (*Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open persona file %s", path)
	}
	defer func() {
		_ = f.Close()
	}()
	return Load(f)
}

func (s *Settings) Validate() error {
	if strings.TrimSpace(s.Model) == "" {
		return ErrMissingModel
	}
	if strings.TrimSpace(s.SystemInstruction) == "" {
		return ErrMissingInstruction
	}
	if s.Temperature < 0 || s.Temperature > MaxTemperature {
		return errors.Wrapf(ErrInvalidTemperature, "%v", s.Temperature)
	}
	return nil
}

func (s *Settings) Clone() *Settings {
	return clone.Clone(s).(*Settings)
}

// Topic returns the 1-based topic idx.
func (s *Settings) Topic(idx int) (Topic, bool) {
	if idx < 1 || idx > len(s.Topics) {
		return Topic{}, false
	}
	return s.Topics[idx-1], true
}
