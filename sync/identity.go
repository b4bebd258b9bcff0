package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/sjson"
)

// IdentityKey is a Sailthru key a profile can be upserted against.
type IdentityKey string

const (
	KeyEmail IdentityKey = "email"
	KeyExtID IdentityKey = "extid"
)

// IdentityMode selects how capture records are matched to Sailthru profiles.
type IdentityMode string

const (
	// EmailPrimary looks the profile up by email and upserts by email when found,
	// otherwise by extid.
	EmailPrimary IdentityMode = "email"
	// ExtIDPrimaryWithMerge always upserts by extid and asks Sailthru to merge
	// a conflicting email into the profile.
	ExtIDPrimaryWithMerge IdentityMode = "extid-merge"
)

// KeysConflictMerge asks Sailthru to merge profiles when a secondary key already belongs to another profile.
const KeysConflictMerge = "merge"

// Identity holds the identity attributes of a capture record.
type Identity struct {
	UUID  string
	Email string
}

// UpsertRequest is a Sailthru user upsert.
type UpsertRequest struct {
	ID           string
	Key          IdentityKey
	Keys         map[IdentityKey]string
	KeysConflict string
	Vars         map[string]interface{}
	Lists        map[string]int
}

// GetFields returns the request's vars.
func (r *UpsertRequest) GetFields() map[string]interface{} { return r.Vars }

// SetField sets a var on the request.
func (r *UpsertRequest) SetField(key string, value interface{}) {
	if r.Vars == nil {
		r.Vars = make(map[string]interface{})
	}
	r.Vars[key] = value
}

// DeleteField deletes a var from the request.
func (r *UpsertRequest) DeleteField(key string) { delete(r.Vars, key) }

// JSON returns the request as the JSON document posted to the Sailthru user API.
func (r UpsertRequest) JSON() (string, error) {
	result, err := sjson.Set("{}", "id", r.ID)
	if err == nil {
		result, err = sjson.Set(result, "key", string(r.Key))
	}
	if err == nil && len(r.Keys) > 0 {
		result, err = setRawJSON(result, "keys", r.Keys)
	}
	if err == nil && r.KeysConflict != "" {
		result, err = sjson.Set(result, "keysconflict", r.KeysConflict)
	}
	if err == nil {
		vars := r.Vars
		if vars == nil {
			vars = map[string]interface{}{}
		}
		result, err = setRawJSON(result, "vars", vars)
	}
	if err == nil && len(r.Lists) > 0 {
		result, err = setRawJSON(result, "lists", r.Lists)
	}
	return result, err
}

// setRawJSON marshals v and sets it at path. Map keys are free text so they are not
// written through sjson paths.
func setRawJSON(doc string, path string, v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return doc, err
	}
	return sjson.SetRaw(doc, path, string(b))
}

func lookupPayload(id string, key IdentityKey) (string, error) {
	result, err := sjson.Set("{}", "id", id)
	if err == nil {
		result, err = sjson.Set(result, "key", string(key))
	}
	return result, err
}

// ProfileLookuper looks up Sailthru profiles.
type ProfileLookuper interface {
	Lookup(ctx context.Context, id string, key IdentityKey) (LookupResult, error)
}

// IdentityStrategy decides which key a record is upserted against.
type IdentityStrategy interface {
	Mode() IdentityMode
	Reconcile(ctx context.Context, identity Identity, vars map[string]interface{}, lists map[string]int) (UpsertRequest, error)
}

// NewIdentityStrategy returns the strategy for mode.
func NewIdentityStrategy(mode IdentityMode, lookuper ProfileLookuper) (IdentityStrategy, error) {
	switch mode {
	case EmailPrimary:
		return EmailPrimaryStrategy{Lookuper: lookuper}, nil
	case ExtIDPrimaryWithMerge:
		return ExtIDMergeStrategy{}, nil
	default:
		return nil, &ConfigurationError{Setting: "SAILTHRU_IDENTITY_MODE", Reason: fmt.Sprintf("unsupported identity mode %q", mode)}
	}
}

// EmailPrimaryStrategy upserts by email when Sailthru already knows the email,
// backfilling the extid. Otherwise it upserts by extid and sets the email.
// Sailthru treats email and extid as independent keys until an upsert links them,
// hence the lookup first.
type EmailPrimaryStrategy struct {
	Lookuper ProfileLookuper
}

func (s EmailPrimaryStrategy) Mode() IdentityMode { return EmailPrimary }

func (s EmailPrimaryStrategy) Reconcile(ctx context.Context, identity Identity, vars map[string]interface{}, lists map[string]int) (UpsertRequest, error) {
	result := UpsertRequest{Vars: vars, Lists: lists}
	lookup, err := s.Lookuper.Lookup(ctx, identity.Email, KeyEmail)
	if err != nil {
		return result, err
	}
	switch lookup.Status {
	case LookupFound:
		result.ID = identity.Email
		result.Key = KeyEmail
		result.Keys = map[IdentityKey]string{KeyExtID: identity.UUID}
	case LookupNotFound:
		result.ID = identity.UUID
		result.Key = KeyExtID
		result.Keys = map[IdentityKey]string{KeyEmail: identity.Email}
	default:
		return result, &CampaignTransientError{ID: identity.Email, Key: KeyEmail, Err: fmt.Errorf("unexpected lookup status %v", lookup.Status)}
	}
	return result, nil
}

// ExtIDMergeStrategy always upserts by extid, merging on email conflicts.
// No lookup is needed as the merge absorbs the conflict.
type ExtIDMergeStrategy struct{}

func (s ExtIDMergeStrategy) Mode() IdentityMode { return ExtIDPrimaryWithMerge }

func (s ExtIDMergeStrategy) Reconcile(ctx context.Context, identity Identity, vars map[string]interface{}, lists map[string]int) (UpsertRequest, error) {
	return UpsertRequest{
		ID:           identity.UUID,
		Key:          KeyExtID,
		Keys:         map[IdentityKey]string{KeyEmail: identity.Email},
		KeysConflict: KeysConflictMerge,
		Vars:         vars,
		Lists:        lists,
	}, nil
}
