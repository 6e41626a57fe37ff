package service

import "anoa.com/mentorconnect/internal/entity"

const DefaultButtonText = "Connect"

// ButtonText returns the call-to-action label for a request from fromRole to
// toRole. Unknown or empty roles get DefaultButtonText.
func ButtonText(fromRole, toRole string) string {
	from := entity.NormalizeRole(fromRole)
	to := entity.NormalizeRole(toRole)

	switch {
	case from == entity.RoleLearner && to == entity.RoleMentor:
		return "Request Mentorship"
	case from == entity.RoleMentor && to == entity.RoleLearner:
		return "Offer Mentorship"
	case to == entity.RoleRecruiter && isKnownRole(from):
		return "Connect with Recruiter"
	case from == entity.RoleRecruiter && isKnownRole(to):
		return "Share Opportunity"
	case from == to && isKnownRole(from):
		return "Connect with Peer"
	default:
		return DefaultButtonText
	}
}

func isKnownRole(role string) bool {
	switch role {
	case entity.RoleLearner, entity.RoleMentor, entity.RoleRecruiter:
		return true
	}
	return false
}
