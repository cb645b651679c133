package click

import (
	"errors"
	"strings"

	"github.com/ilmiyplatform/ms-go-billing/config"
)

// Credentials is the tuple Click assigns per contracted merchant service.
type Credentials struct {
	MerchantID     string
	ServiceID      string
	SecretKey      string
	MerchantUserID string
}

// Resolver maps incoming service ids and platform service-type labels to
// credential tuples. Pure lookup; it never fails after construction.
type Resolver struct {
	def           Credentials
	byServiceID   map[string]Credentials
	byServiceType map[string]string
}

func NewResolver(cfg config.ClickConfig) (*Resolver, error) {
	def := credentialsFromConfig(cfg.Default)
	if strings.TrimSpace(def.SecretKey) == "" || strings.TrimSpace(def.ServiceID) == "" {
		return nil, errors.New("default click credentials are not configured")
	}

	byServiceID := make(map[string]Credentials, len(cfg.Services))
	for serviceID, creds := range cfg.Services {
		byServiceID[serviceID] = credentialsFromConfig(creds)
	}

	byServiceType := make(map[string]string, len(cfg.ServiceTypes))
	for label, serviceID := range cfg.ServiceTypes {
		byServiceType[label] = serviceID
	}

	return &Resolver{
		def:           def,
		byServiceID:   byServiceID,
		byServiceType: byServiceType,
	}, nil
}

// ByServiceID resolves the tuple for a provider service id, falling back to
// the default tuple for unknown ids.
func (r *Resolver) ByServiceID(serviceID string) Credentials {
	if creds, ok := r.byServiceID[strings.TrimSpace(serviceID)]; ok {
		return creds
	}
	return r.def
}

// ByServiceType resolves the tuple for a platform service-type label.
func (r *Resolver) ByServiceType(serviceType string) Credentials {
	serviceID, ok := r.byServiceType[strings.TrimSpace(serviceType)]
	if !ok {
		return r.def
	}
	return r.ByServiceID(serviceID)
}

func (r *Resolver) Default() Credentials {
	return r.def
}

func credentialsFromConfig(creds config.ClickCredentials) Credentials {
	return Credentials{
		MerchantID:     strings.TrimSpace(creds.MerchantID),
		ServiceID:      strings.TrimSpace(creds.ServiceID),
		SecretKey:      strings.TrimSpace(creds.SecretKey),
		MerchantUserID: strings.TrimSpace(creds.MerchantUserID),
	}
}
