package sync

import (
	"context"
	"fmt"
)

// UserResource is the Sailthru API resource for user profiles.
const UserResource = "user"

// LookupStatus is the outcome of looking up a profile in Sailthru.
type LookupStatus int

const (
	LookupFound LookupStatus = iota
	LookupNotFound
)

func (s LookupStatus) String() string {
	switch s {
	case LookupFound:
		return "found"
	case LookupNotFound:
		return "not found"
	default:
		return fmt.Sprintf("LookupStatus(%d)", int(s))
	}
}

// lookupErrorStatuses maps Sailthru error codes onto lookup outcomes.
// Any code not listed is unexpected and fails the lookup.
var lookupErrorStatuses = map[int]LookupStatus{
	99: LookupNotFound, // "User not found with <key>: <id>"
}

// LookupResult is a profile lookup outcome. Profile holds the raw profile when found.
type LookupResult struct {
	Status  LookupStatus
	Profile string
}

// CampaignTransientError is returned when a lookup fails for any reason other than not found.
type CampaignTransientError struct {
	ID   string
	Key  IdentityKey
	Code int
	Err  error
}

func (e *CampaignTransientError) Error() string {
	return fmt.Sprintf("sailthru lookup by %s %s: %v", e.Key, e.ID, e.Err)
}

func (e *CampaignTransientError) Unwrap() error { return e.Err }

// CampaignUpsertError is returned when Sailthru rejects an upsert.
type CampaignUpsertError struct {
	ID   string
	Key  IdentityKey
	Code int
	Err  error
}

func (e *CampaignUpsertError) Error() string {
	return fmt.Sprintf("sailthru upsert by %s %s: %v", e.Key, e.ID, e.Err)
}

func (e *CampaignUpsertError) Unwrap() error { return e.Err }

// CampaignClient looks up and upserts Sailthru user profiles.
// It never retries, retries are left to the webhook sender redelivering the batch.
type CampaignClient struct {
	API CampaignAPI
}

// Lookup finds the profile identified by id under key.
func (c CampaignClient) Lookup(ctx context.Context, id string, key IdentityKey) (LookupResult, error) {
	var result LookupResult
	payload, err := lookupPayload(id, key)
	if err != nil {
		return result, &CampaignTransientError{ID: id, Key: key, Err: err}
	}
	response, err := c.API.APIGet(ctx, UserResource, payload)
	if err != nil {
		return result, &CampaignTransientError{ID: id, Key: key, Err: err}
	}
	if response.OK() {
		result.Status = LookupFound
		result.Profile = response.Body
		return result, nil
	}
	if status, exists := lookupErrorStatuses[response.Error.Code]; exists {
		result.Status = status
		return result, nil
	}
	return result, &CampaignTransientError{ID: id, Key: key, Code: response.Error.Code, Err: *response.Error}
}

// Upsert creates or updates the profile described by req, returning the profile body.
func (c CampaignClient) Upsert(ctx context.Context, req UpsertRequest) (string, error) {
	payload, err := req.JSON()
	if err != nil {
		return "", &CampaignUpsertError{ID: req.ID, Key: req.Key, Err: err}
	}
	response, err := c.API.APIPost(ctx, UserResource, payload)
	if err != nil {
		return "", &CampaignUpsertError{ID: req.ID, Key: req.Key, Err: err}
	}
	if !response.OK() {
		return "", &CampaignUpsertError{ID: req.ID, Key: req.Key, Code: response.Error.Code, Err: *response.Error}
	}
	return response.Body, nil
}
