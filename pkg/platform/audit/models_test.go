package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuditEvent_Category(t *testing.T) {
	assert.Equal(t, CategoryCompliance, EventSubscriptionMatured.Category())
	assert.Equal(t, CategorySecurity, EventAccessDenied.Category())
	assert.Equal(t, CategoryOperations, EventReportSubmitted.Category())
	assert.Equal(t, CategoryOperations, AuditEvent("unknown_event").Category())
}
