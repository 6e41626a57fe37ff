package service

import (
	"fmt"

	"anoa.com/mentorconnect/internal/entity"
)

// connectionRequestText builds the title and description shown to the
// recipient of a new request.
func connectionRequestText(senderName, fromRole, toRole string) (title, description string) {
	from := entity.NormalizeRole(fromRole)
	to := entity.NormalizeRole(toRole)

	switch {
	case from == entity.RoleLearner && to == entity.RoleMentor:
		return "New mentorship request",
			fmt.Sprintf("%s would like you to be their mentor", senderName)
	case from == entity.RoleMentor && to == entity.RoleLearner:
		return "Mentorship offer",
			fmt.Sprintf("%s offered to mentor you", senderName)
	case from == entity.RoleRecruiter:
		return "New opportunity",
			fmt.Sprintf("%s wants to talk to you about an opportunity", senderName)
	case to == entity.RoleRecruiter:
		return "New candidate connection",
			fmt.Sprintf("%s wants to connect with you", senderName)
	default:
		return "New connection request",
			fmt.Sprintf("%s wants to connect with you", senderName)
	}
}

func connectionAcceptedText(accepterName string) (title, description string) {
	return "Connection accepted",
		fmt.Sprintf("%s accepted your connection request", accepterName)
}

func projectJoinText(memberName, projectTitle string) (title, description string) {
	return "New project member",
		fmt.Sprintf("%s joined your project %q", memberName, projectTitle)
}
