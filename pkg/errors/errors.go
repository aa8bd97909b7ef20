package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeDiscovery represents failures while locating candidate product URLs
	ErrorTypeDiscovery ErrorType = "discovery"
	// ErrorTypeScrape represents a single-page extraction failure
	ErrorTypeScrape ErrorType = "scrape"
	// ErrorTypeMarket represents a whole-market extraction failure
	ErrorTypeMarket ErrorType = "market"
	// ErrorTypeRender represents browser launch/navigation failures
	ErrorTypeRender ErrorType = "render"
	// ErrorTypeNetwork represents network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeTimeout represents exceeded per-operation deadlines
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeValidation represents request validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// ExtractError represents an extraction-pipeline error
type ExtractError struct {
	Type   ErrorType
	Site   string
	Market string
	Err    error
	Msg    string
	Time   time.Time
}

// Error implements the error interface
func (e *ExtractError) Error() string {
	scope := e.Site
	if e.Market != "" {
		scope = scope + "/" + e.Market
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, scope, e.Msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, scope, e.Msg)
}

// Unwrap returns the underlying error
func (e *ExtractError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether a later request may succeed without changes.
// Per-page scrape and parse failures are terminal for the URL within a run.
func (e *ExtractError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeRender:
		return true
	default:
		return false
	}
}

// New creates a new ExtractError
func New(errType ErrorType, site, market, msg string, err error) *ExtractError {
	return &ExtractError{
		Type:   errType,
		Site:   site,
		Market: market,
		Msg:    msg,
		Err:    err,
		Time:   time.Now(),
	}
}

// NewDiscovery creates a discovery error
func NewDiscovery(site, market, msg string, err error) *ExtractError {
	return New(ErrorTypeDiscovery, site, market, msg, err)
}

// NewScrape creates a per-page scrape error
func NewScrape(site, market, msg string, err error) *ExtractError {
	return New(ErrorTypeScrape, site, market, msg, err)
}

// NewMarket creates a market-level error
func NewMarket(site, market, msg string, err error) *ExtractError {
	return New(ErrorTypeMarket, site, market, msg, err)
}

// NewRender creates a browser render error
func NewRender(site, market, msg string, err error) *ExtractError {
	return New(ErrorTypeRender, site, market, msg, err)
}

// NewTimeout creates a timeout error
func NewTimeout(site, market string, d time.Duration) *ExtractError {
	return New(ErrorTypeTimeout, site, market, fmt.Sprintf("deadline of %v exceeded", d), nil)
}

// NewValidation creates a validation error
func NewValidation(msg string) *ExtractError {
	return New(ErrorTypeValidation, "", "", msg, nil)
}

// NewConfiguration creates a configuration error
func NewConfiguration(msg string, err error) *ExtractError {
	return New(ErrorTypeConfiguration, "", "", msg, err)
}
