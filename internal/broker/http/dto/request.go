// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"time"

	validation "github.com/jellydator/validation"

	brokerDomain "github.com/opsportal/linkbroker/internal/broker/domain"
	customValidation "github.com/opsportal/linkbroker/internal/validation"
)

// IssueLinkRequest contains the parameters for minting a single capability link.
// TTLSeconds of zero means the operation-class default from configuration.
type IssueLinkRequest struct {
	Operation     string            `json:"operation"`
	Location      string            `json:"location"`
	TTLSeconds    int64             `json:"ttl_seconds,omitempty"`
	ReferenceHint string            `json:"reference_hint,omitempty"`
	Aux           map[string]string `json:"aux,omitempty"`
}

// Validate checks if the issue link request is valid.
func (r *IssueLinkRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Operation,
			validation.Required,
			customValidation.OperationClass,
		),
		validation.Field(&r.Location,
			validation.Required,
			customValidation.ResourcePath,
		),
		validation.Field(&r.TTLSeconds,
			validation.Min(int64(0)),
		),
	)
}

// ToInput converts the request to a domain issuance input.
// Operation validity is guaranteed by Validate.
func (r *IssueLinkRequest) ToInput() *brokerDomain.IssueLinkInput {
	op, _ := brokerDomain.ParseOperation(r.Operation)
	return &brokerDomain.IssueLinkInput{
		Operation:     op,
		Location:      r.Location,
		TTL:           time.Duration(r.TTLSeconds) * time.Second,
		ReferenceHint: r.ReferenceHint,
		Aux:           r.Aux,
	}
}

// OperatorInviteRequest identifies one operator and its recipients within an invite batch.
type OperatorInviteRequest struct {
	OperatorID string   `json:"operator_id"`
	Emails     []string `json:"emails"`
}

// Validate checks if the operator invite entry is valid.
func (r *OperatorInviteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.OperatorID,
			validation.Required,
			customValidation.NotBlank,
		),
		validation.Field(&r.Emails,
			validation.Required,
			validation.Length(1, 0),
			validation.Each(customValidation.Email),
		),
	)
}

// InviteBatchRequest contains the parameters for a batch of upload invites,
// deduplicated by alert reference.
type InviteBatchRequest struct {
	AlertReference string                  `json:"alert_reference"`
	Operators      []OperatorInviteRequest `json:"operators"`
}

// Validate checks if the invite batch request and every operator entry are valid.
func (r *InviteBatchRequest) Validate() error {
	if err := validation.ValidateStruct(r,
		validation.Field(&r.AlertReference,
			validation.Required,
			customValidation.NotBlank,
		),
		validation.Field(&r.Operators,
			validation.Required,
			validation.Length(1, 0),
		),
	); err != nil {
		return err
	}

	for i := range r.Operators {
		if err := r.Operators[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ToInput converts the request to a domain invite batch input.
func (r *InviteBatchRequest) ToInput() *brokerDomain.InviteBatchInput {
	operators := make([]brokerDomain.OperatorInvite, 0, len(r.Operators))
	for _, op := range r.Operators {
		operators = append(operators, brokerDomain.OperatorInvite{
			OperatorID: op.OperatorID,
			Emails:     op.Emails,
		})
	}
	return &brokerDomain.InviteBatchInput{
		AlertReference: r.AlertReference,
		Operators:      operators,
	}
}
