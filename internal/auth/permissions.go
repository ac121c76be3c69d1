package auth

// Permission names. The catalog is fixed at compile time; changing it is a
// redeploy, not a migration.
const (
	PermCreateProject     = "create_project"
	PermGetProject        = "get_project"
	PermUpdateProject     = "update_project"
	PermDeleteProject     = "delete_project"
	PermListIssues        = "list_issues"
	PermGetIssue          = "get_issue"
	PermCreateIssue       = "create_issue"
	PermChangeIssueStatus = "change_issue_status"
	PermCloseIssue        = "close_issue"
	PermManageMembers     = "manage_members"
	PermManageRoles       = "manage_roles"
	PermGrantPermission   = "grant_permission"
)

// Operation identifiers used by the request pipeline. Most share a name with
// the permission they require; the map below is still the single source of
// truth for what each operation needs.
const (
	OpCreateProject     = "create_project"
	OpGetProject        = "get_project"
	OpListProjects      = "list_projects"
	OpUpdateProject     = "update_project"
	OpDeleteProject     = "delete_project"
	OpListIssues        = "list_issues"
	OpGetIssue          = "get_issue"
	OpCreateIssue       = "create_issue"
	OpUpdateIssue       = "update_issue"
	OpChangeIssueStatus = "change_issue_status"
	OpCloseIssue        = "close_issue"
	OpAddMember         = "add_member"
	OpGetMember         = "get_member"
	OpRemoveMember      = "remove_member"
	OpGrantRole         = "grant_role"
	OpRevokeRole        = "revoke_role"
	OpCreateRole        = "create_role"
	OpUpdateRole        = "update_role"
	OpGrantPermission   = "grant_permission"
	OpRevokePermission  = "revoke_permission"
	OpGetUserInfo       = "get_user_info"
	OpListUsers         = "list_users"
	OpListRoles         = "list_roles"
	OpListPermissions   = "list_permissions"
	OpCreateIssueType   = "create_issue_type"
	OpUpdateIssueType   = "update_issue_type"
	OpBindIssueType     = "bind_issue_type"
	OpListIssueTypes    = "list_issue_types"
)

// Catalog returns the full permission catalog with its HTTP registration
// metadata. The method/url pairs document the canonical route for each
// capability; authorization itself only compares names.
func Catalog() []Permission {
	return []Permission{
		{Name: PermCreateProject, Method: "POST", URL: "/v1/projects"},
		{Name: PermGetProject, Method: "GET", URL: "/v1/projects/{id}"},
		{Name: PermUpdateProject, Method: "PUT", URL: "/v1/projects/{id}"},
		{Name: PermDeleteProject, Method: "DELETE", URL: "/v1/projects/{id}"},
		{Name: PermListIssues, Method: "GET", URL: "/v1/projects/{id}/issues"},
		{Name: PermGetIssue, Method: "GET", URL: "/v1/projects/{id}/issues/{index}"},
		{Name: PermCreateIssue, Method: "POST", URL: "/v1/projects/{id}/issues"},
		{Name: PermChangeIssueStatus, Method: "PUT", URL: "/v1/projects/{id}/issues/{index}"},
		{Name: PermCloseIssue, Method: "POST", URL: "/v1/projects/{id}/issues/{index}/close"},
		{Name: PermManageMembers, Method: "POST", URL: "/v1/projects/{id}/members"},
		{Name: PermManageRoles, Method: "POST", URL: "/v1/roles"},
		{Name: PermGrantPermission, Method: "POST", URL: "/v1/users/{id}/permissions"},
	}
}

// Requirements maps an operation id to the permission names it demands.
// An operation with no entry is open to any authenticated caller.
type Requirements map[string][]string

// For returns the required permission names for an operation. A nil or empty
// result means the operation only needs a valid token.
func (r Requirements) For(operationID string) []string {
	return r[operationID]
}

// DefaultRequirements builds the static operation-to-permission table. The
// result is constructed once at startup and passed by value into the request
// pipeline; nothing mutates it afterwards.
func DefaultRequirements() Requirements {
	return Requirements{
		OpCreateProject:     {PermCreateProject},
		OpGetProject:        {PermGetProject},
		OpUpdateProject:     {PermUpdateProject},
		OpDeleteProject:     {PermDeleteProject},
		OpListIssues:        {PermListIssues},
		OpGetIssue:          {PermGetIssue},
		OpCreateIssue:       {PermCreateIssue},
		OpUpdateIssue:       {PermChangeIssueStatus},
		OpChangeIssueStatus: {PermChangeIssueStatus},
		OpCloseIssue:        {PermCloseIssue},
		OpAddMember:         {PermManageMembers},
		OpRemoveMember:      {PermManageMembers},
		OpGrantRole:         {PermManageRoles},
		OpRevokeRole:        {PermManageRoles},
		OpCreateRole:        {PermManageRoles},
		OpUpdateRole:        {PermManageRoles},
		OpGrantPermission:   {PermGrantPermission},
		OpRevokePermission:  {PermGrantPermission},
		OpCreateIssueType:   {PermUpdateProject},
		OpUpdateIssueType:   {PermUpdateProject},
		OpBindIssueType:     {PermUpdateProject},
		// OpListProjects, OpGetMember, OpGetUserInfo, OpListUsers, OpListRoles,
		// OpListPermissions and OpListIssueTypes carry no entry: any
		// authenticated user may call them.
	}
}

// Default role templates instantiated for every new project.
const (
	RoleAdmin     = "Admin"
	RoleDeveloper = "Developer"
	RoleManager   = "Manager"
	RoleTester    = "Tester"
)

// DefaultProjectRoles lists the role templates bound to a project when the
// creator supplies none.
func DefaultProjectRoles() []Role {
	return []Role{
		{Name: RoleDeveloper, Description: "Works on issues"},
		{Name: RoleManager, Description: "Manages the project and its members"},
		{Name: RoleTester, Description: "Verifies and closes issues"},
	}
}
