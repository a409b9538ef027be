package service

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/opsportal/linkbroker/internal/broker/domain"
	"github.com/opsportal/linkbroker/internal/errors"
)

// Wire format field names. "location" and "type" are the canonical keys;
// "resource_location" and "operation" are accepted as aliases on decode.
const (
	fieldLocation         = "location"
	fieldLocationAlias    = "resource_location"
	fieldOperation        = "type"
	fieldOperationAlias   = "operation"
	fieldExpiry           = "expiry"
	fieldReference        = "reference"
	pairSeparator         = "&"
	keyValueSeparator     = "="
	base64PaddingModulus  = 4
	base64PaddingCharByte = "="
)

type tokenCodec struct{}

// NewTokenCodec creates the codec for the key=value, base64url token format.
func NewTokenCodec() TokenCodec {
	return &tokenCodec{}
}

// Encode serializes the capability as ordered key=value pairs joined by "&",
// then base64url-encodes the whole string. Auxiliary values are
// percent-escaped; the path-like fields must not contain the delimiters.
func (t *tokenCodec) Encode(capability *domain.Capability) (string, error) {
	if capability.Reference == "" {
		return "", errors.Wrap(errors.ErrInvalidInput, "capability reference is empty")
	}
	if _, ok := domain.ParseOperation(string(capability.Operation)); !ok {
		return "", errors.Wrap(errors.ErrInvalidInput,
			fmt.Sprintf("unknown operation %q", capability.Operation))
	}
	for _, field := range []string{capability.Location, capability.Reference} {
		if strings.ContainsAny(field, pairSeparator+keyValueSeparator) {
			return "", errors.Wrap(errors.ErrInvalidInput,
				fmt.Sprintf("field %q contains a wire format delimiter", field))
		}
	}

	pairs := []string{
		fieldLocation + keyValueSeparator + capability.Location,
		fieldOperation + keyValueSeparator + string(capability.Operation),
		fieldExpiry + keyValueSeparator + capability.ExpiresAt.UTC().Format(domain.ExpiryLayout),
		fieldReference + keyValueSeparator + capability.Reference,
	}

	// Sorted auxiliary keys keep the encoding deterministic.
	auxKeys := make([]string, 0, len(capability.Aux))
	for key := range capability.Aux {
		auxKeys = append(auxKeys, key)
	}
	sort.Strings(auxKeys)
	for _, key := range auxKeys {
		pairs = append(pairs, key+keyValueSeparator+url.QueryEscape(capability.Aux[key]))
	}

	plain := strings.Join(pairs, pairSeparator)
	return base64.URLEncoding.EncodeToString([]byte(plain)), nil
}

// Normalize reverts transport mangling: one extra percent-decode pass for
// tokens that went through a query string twice, and base64 padding
// restoration for tokens delivered without trailing "=".
func (t *tokenCodec) Normalize(token string) string {
	if strings.Contains(token, "%") {
		if unescaped, err := url.QueryUnescape(token); err == nil {
			token = unescaped
		}
	}
	if missing := len(token) % base64PaddingModulus; missing != 0 {
		token += strings.Repeat(base64PaddingCharByte, base64PaddingModulus-missing)
	}
	return token
}

// Decode parses a presented token into a capability descriptor. A segment
// without "=" is an error, not silently dropped. Absent required fields are
// reported via MissingFieldError so diagnostics can name the field.
func (t *tokenCodec) Decode(token string) (*domain.Capability, error) {
	raw := t.Normalize(token)

	decoded, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		return nil, errors.Wrap(domain.ErrInvalidToken, "token is not valid base64url")
	}

	fields := make(map[string]string)
	for _, segment := range strings.Split(string(decoded), pairSeparator) {
		key, value, found := strings.Cut(segment, keyValueSeparator)
		if !found {
			return nil, errors.Wrap(domain.ErrInvalidToken,
				fmt.Sprintf("malformed token segment %q", segment))
		}
		fields[key] = value
	}

	location, err := takeField(fields, fieldLocation, fieldLocationAlias)
	if err != nil {
		return nil, err
	}
	operationValue, err := takeField(fields, fieldOperation, fieldOperationAlias)
	if err != nil {
		return nil, err
	}
	expiryValue, err := takeField(fields, fieldExpiry)
	if err != nil {
		return nil, err
	}
	reference, err := takeField(fields, fieldReference)
	if err != nil {
		return nil, err
	}

	operation, ok := domain.ParseOperation(operationValue)
	if !ok {
		return nil, errors.Wrap(domain.ErrInvalidToken,
			fmt.Sprintf("unknown operation %q", operationValue))
	}

	expiresAt, err := time.ParseInLocation(domain.ExpiryLayout, expiryValue, time.UTC)
	if err != nil {
		return nil, errors.Wrap(domain.ErrInvalidToken,
			fmt.Sprintf("invalid expiry %q", expiryValue))
	}

	var aux map[string]string
	for key, value := range fields {
		unescaped, err := url.QueryUnescape(value)
		if err != nil {
			return nil, errors.Wrap(domain.ErrInvalidToken,
				fmt.Sprintf("invalid auxiliary field %q", key))
		}
		if aux == nil {
			aux = make(map[string]string)
		}
		aux[key] = unescaped
	}

	return &domain.Capability{
		Location:  location,
		Operation: operation,
		ExpiresAt: expiresAt,
		Reference: reference,
		Aux:       aux,
	}, nil
}

// takeField pops the first present name (canonical key or alias) from the
// field map, so the leftovers are the auxiliary fields.
func takeField(fields map[string]string, names ...string) (string, error) {
	var value string
	found := false
	for _, name := range names {
		if v, ok := fields[name]; ok {
			if !found {
				value = v
				found = true
			}
			delete(fields, name)
		}
	}
	if !found {
		return "", &domain.MissingFieldError{Field: names[0]}
	}
	return value, nil
}
