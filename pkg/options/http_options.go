package options

import (
	"errors"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*HttpOptions)(nil)

// HttpOptions configures the query API server.
type HttpOptions struct {
	// Addr is the bind address and port.
	Addr string `json:"addr" mapstructure:"addr"`

	// Timeout bounds reading a request and writing its response.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// ShutdownTimeout bounds the graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`

	// RateLimit is the sustained requests per second across all clients.
	// Zero disables limiting.
	RateLimit float64 `json:"rate-limit" mapstructure:"rate-limit"`

	// RateBurst is the bucket size of the limiter.
	RateBurst int `json:"rate-burst" mapstructure:"rate-burst"`

	// AllowedOrigins restricts websocket upgrades. Empty allows any origin.
	AllowedOrigins []string `json:"allowed-origins" mapstructure:"allowed-origins"`
}

// NewHttpOptions creates a HttpOptions object with default parameters.
func NewHttpOptions() *HttpOptions {
	return &HttpOptions{
		Addr:            "0.0.0.0:5000",
		Timeout:         30 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		RateLimit:       200,
		RateBurst:       400,
	}
}

func (o *HttpOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if err := ValidateAddress(o.Addr); err != nil {
		errs = append(errs, err)
	}
	if o.RateLimit < 0 {
		errs = append(errs, errors.New("http.rate-limit must not be negative"))
	}
	if o.RateLimit > 0 && o.RateBurst < 1 {
		errs = append(errs, errors.New("http.rate-burst must be at least 1 when rate limiting is enabled"))
	}
	return errs
}

func (o *HttpOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Addr, join(prefixes, "http.addr"), o.Addr, "The HTTP server bind address and port.")
	fs.DurationVar(&o.Timeout, join(prefixes, "http.timeout"), o.Timeout, "Read and write timeout for HTTP requests.")
	fs.DurationVar(&o.ShutdownTimeout, join(prefixes, "http.shutdown-timeout"), o.ShutdownTimeout, "Grace period for in-flight requests on shutdown.")
	fs.Float64Var(&o.RateLimit, join(prefixes, "http.rate-limit"), o.RateLimit, "Requests per second accepted by the API. 0 disables limiting.")
	fs.IntVar(&o.RateBurst, join(prefixes, "http.rate-burst"), o.RateBurst, "Burst size of the API rate limiter.")
	fs.StringSliceVar(&o.AllowedOrigins, join(prefixes, "http.allowed-origins"), o.AllowedOrigins, "Origins allowed to open the live updates websocket. Empty allows any.")
}
