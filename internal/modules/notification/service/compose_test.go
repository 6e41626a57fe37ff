package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionRequestText(t *testing.T) {
	tests := []struct {
		from, to  string
		wantTitle string
	}{
		{"learner", "mentor", "New mentorship request"},
		{"  Learner ", "MENTOR\t", "New mentorship request"},
		{"mentor", " learner", "Mentorship offer"},
		{" recruiter ", "learner", "New opportunity"},
		{"mentor", "Recruiter ", "New candidate connection"},
		{"", "", "New connection request"},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			title, description := connectionRequestText("ana", tt.from, tt.to)
			assert.Equal(t, tt.wantTitle, title)
			assert.Contains(t, description, "ana")
		})
	}
}
