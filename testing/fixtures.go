package testing

import (
	"fmt"
	"math/rand"

	"github.com/victorycadets/admissions-agent/models"
	"github.com/victorycadets/admissions-agent/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// RandomPhone returns an Indian mobile number unlikely to collide within a test
func RandomPhone() string {
	return fmt.Sprintf("+919%09d", rand.Intn(900000000)+100000000)
}

// CreateTestLead creates a lead in the given status
func (tf *TestFixtures) CreateTestLead(status models.LeadStatus) (*models.Lead, error) {
	lead := &models.Lead{
		FullName:    "Rohan Verma",
		PhoneNumber: RandomPhone(),
		StudentName: utils.ToPtr("Aarav Verma"),
		TargetExam:  models.TargetExamSainikSchool,
		Source:      models.LeadSourceFacebook,
		Status:      status,
		Tags:        []string{"facebook"},
	}
	if err := tf.DB.DB.Create(lead).Error; err != nil {
		return nil, fmt.Errorf("failed to create test lead: %w", err)
	}
	return lead, nil
}

// CreateDefaultScript creates the default agent script
func (tf *TestFixtures) CreateDefaultScript() (*models.AgentScript, error) {
	script := models.DefaultAgentScript()
	if err := tf.DB.DB.Create(script).Error; err != nil {
		return nil, fmt.Errorf("failed to create default script: %w", err)
	}
	return script, nil
}

// CreateCallRecord creates a ledger row for a lead
func (tf *TestFixtures) CreateCallRecord(lead *models.Lead, callSid string, disposition models.CallDisposition) (*models.CallRecord, error) {
	record := &models.CallRecord{
		CallSid:     callSid,
		Direction:   models.CallDirectionOutbound,
		Disposition: disposition,
	}
	if lead != nil {
		record.LeadID = &lead.ID
	}
	if err := tf.DB.DB.Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to create call record: %w", err)
	}
	return record, nil
}
