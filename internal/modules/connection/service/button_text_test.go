package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestButtonText(t *testing.T) {
	tests := []struct {
		from, to string
		want     string
	}{
		{"learner", "mentor", "Request Mentorship"},
		{"mentor", "learner", "Offer Mentorship"},
		{"learner", "recruiter", "Connect with Recruiter"},
		{"mentor", "recruiter", "Connect with Recruiter"},
		{"recruiter", "learner", "Share Opportunity"},
		{"recruiter", "mentor", "Share Opportunity"},
		{"learner", "learner", "Connect with Peer"},
		{"mentor", "mentor", "Connect with Peer"},
		{"recruiter", "recruiter", "Connect with Recruiter"},
		{" Learner ", "MENTOR", "Request Mentorship"},
		{"", "mentor", DefaultButtonText},
		{"admin", "learner", DefaultButtonText},
		{"", "", DefaultButtonText},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, ButtonText(tt.from, tt.to))
		})
	}
}
