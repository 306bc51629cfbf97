package domain

// WorkspaceRole is the viewer's standing in the workspace that hosts a
// challenge.
type WorkspaceRole string

const (
	RoleSelf   WorkspaceRole = "self"
	RoleAdmin  WorkspaceRole = "admin"
	RoleMember WorkspaceRole = "member"
)

// ShareLevel is how much of their progress a member has chosen to expose
// to other workspace members.
type ShareLevel string

const (
	ShareFull        ShareLevel = "full"
	ShareProgress    ShareLevel = "progress_only"
	ShareStreaksOnly ShareLevel = "streaks_only"
	SharePrivate     ShareLevel = "private"
)

// Field names a piece of a participant's progress a viewer may read.
type Field string

const (
	FieldCurrentValue   Field = "current_value"
	FieldCompletionRate Field = "completion_rate"
	FieldStreaks        Field = "streaks"
	FieldHistory        Field = "history"
)

// VisibleFields is the single capability check for progress visibility.
// Every route that renders another member's progress goes through here
// instead of re-deriving the rules inline.
func VisibleFields(viewer WorkspaceRole, share ShareLevel) map[Field]bool {
	all := map[Field]bool{
		FieldCurrentValue:   true,
		FieldCompletionRate: true,
		FieldStreaks:        true,
		FieldHistory:        true,
	}

	// You always see yourself, and admins see everything for moderation.
	if viewer == RoleSelf || viewer == RoleAdmin {
		return all
	}

	switch share {
	case ShareFull:
		return all
	case ShareProgress:
		return map[Field]bool{
			FieldCurrentValue:   true,
			FieldCompletionRate: true,
		}
	case ShareStreaksOnly:
		return map[Field]bool{
			FieldStreaks: true,
		}
	default:
		return map[Field]bool{}
	}
}
