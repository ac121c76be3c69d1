package auth

import "context"

// EffectivePermissions computes the permission set a user holds for an
// optional project scope:
//
//	direct user grants (always)
//	∪ permissions of every role bound to the user in projectID (when scoped)
//
// With an empty projectID only direct grants apply: role-derived permissions
// do not exist outside a project scope. An unknown user yields an empty set,
// not an error; invalid tokens are rejected before this point.
func (s *Service) EffectivePermissions(ctx context.Context, userID, projectID string) (map[string]struct{}, error) {
	held := make(map[string]struct{})

	direct, err := s.store.Permissions(ctx).DirectGrants(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, name := range direct {
		held[name] = struct{}{}
	}

	if projectID == "" {
		return held, nil
	}

	bindings, err := s.store.Roles(ctx).BindingsFor(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(bindings))
	for _, b := range bindings {
		if _, ok := seen[b.RoleID]; ok {
			continue
		}
		seen[b.RoleID] = struct{}{}
		perms, err := s.store.Permissions(ctx).PermissionsForRole(ctx, b.RoleID)
		if err != nil {
			return nil, err
		}
		for _, p := range perms {
			held[p.Name] = struct{}{}
		}
	}
	return held, nil
}
