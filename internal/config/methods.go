package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Method is one merchant-configured XPS shipping method. Missing credentials
// are not a validation error; such a method offers no services.
type Method struct {
	ID                string        `yaml:"id" validate:"required,max=64"`
	APIKey            string        `yaml:"api_key"`
	CustomerID        string        `yaml:"customer_id"`
	BaseURL           string        `yaml:"base_url" validate:"omitempty,url"`
	Services          []string      `yaml:"services" validate:"dive,required"`
	ServedCountries   []string      `yaml:"served_countries" validate:"dive,iso3166_1_alpha2"`
	StoreCountry      string        `yaml:"store_country" validate:"omitempty,iso3166_1_alpha2"`
	TrackingURL       string        `yaml:"tracking_url"`
	LogRequests       bool          `yaml:"log_requests"`
	LogResponses      bool          `yaml:"log_responses"`
	Timeout           time.Duration `yaml:"timeout" validate:"gte=0"`
	MaxAttempts       int           `yaml:"max_attempts" validate:"gte=0,lte=10"`
	MaxConcurrency    int           `yaml:"max_concurrency" validate:"gte=0,lte=64"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gte=0"`
	UseMock           bool          `yaml:"use_mock"`
}

// MethodsFile is the layout of the merchant config file.
type MethodsFile struct {
	Methods []Method `yaml:"methods" validate:"required,min=1,unique=ID,dive"`
}

// LoadMethods reads and validates a merchant config file.
func LoadMethods(path string) ([]Method, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading merchant config: %w", err)
	}
	return ParseMethods(data)
}

// ParseMethods decodes and validates merchant config YAML. Unknown keys are
// rejected.
func ParseMethods(data []byte) ([]Method, error) {
	var file MethodsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parsing merchant config: %w", err)
	}

	if err := validate.Struct(file); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, fmt.Errorf("invalid merchant config: %s failed on %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return nil, fmt.Errorf("invalid merchant config: %w", err)
	}
	return file.Methods, nil
}
