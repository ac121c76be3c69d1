package auth

import (
	"context"
	"errors"
)

// Authorize runs the full per-request decision pipeline:
//
//	validate token → resolve user → look up requirements →
//	resolve effective permissions → subset check
//
// It returns the principal on allow. On deny the error is ErrInvalidToken
// (authentication failed) or ErrPermissionDenied (authenticated but lacking
// permissions); any other error is an internal failure and callers must
// treat it as a denial as well. No lookup failure ever produces an allow.
func (s *Service) Authorize(ctx context.Context, token, operationID string, requirements Requirements, projectID string) (Principal, error) {
	valid, err := s.ValidateToken(ctx, token)
	if err != nil {
		return Principal{}, err
	}
	if !valid {
		return Principal{}, ErrInvalidToken
	}

	user, err := s.ResolveUser(ctx, token)
	if err != nil {
		// Should not happen after a successful validation, but a token that
		// resolves to no user is an authentication failure, never "no user,
		// allow by default".
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrInvalidToken
		}
		return Principal{}, err
	}

	required := requirements.For(operationID)
	if len(required) == 0 {
		return NewPrincipal(user, projectID, nil), nil
	}

	held, err := s.EffectivePermissions(ctx, user.ID, projectID)
	if err != nil {
		return Principal{}, err
	}
	principal := NewPrincipal(user, projectID, held)
	if !principal.HasAll(required) {
		return Principal{}, ErrPermissionDenied
	}
	return principal, nil
}
