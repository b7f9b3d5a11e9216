package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/brgycare/brgycare-backend/internal/appointment/repository"
	"github.com/brgycare/brgycare-backend/internal/appointment/service"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{repository.StatusScheduled, repository.StatusCompleted, true},
		{repository.StatusScheduled, repository.StatusCancelled, true},
		{repository.StatusScheduled, repository.StatusNoShow, true},
		{repository.StatusCompleted, repository.StatusScheduled, false},
		{repository.StatusCancelled, repository.StatusCompleted, false},
		{repository.StatusNoShow, repository.StatusScheduled, false},
		{repository.StatusScheduled, repository.StatusScheduled, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+" to "+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, service.CanTransition(tt.from, tt.to))
		})
	}
}
