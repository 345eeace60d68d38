package scheduler

import (
	"testing"

	"github.com/google/uuid"
)

func TestCampaignRefreshPayloadRoundTrip(t *testing.T) {
	campaignID := uuid.New().String()

	task, err := NewCampaignRefreshTask(CampaignRefreshPayload{CampaignID: campaignID})
	if err != nil {
		t.Fatalf("NewCampaignRefreshTask: %v", err)
	}
	if task.Type() != TaskCampaignRefresh {
		t.Fatalf("task type = %q, want %q", task.Type(), TaskCampaignRefresh)
	}

	payload, err := ParseCampaignRefreshPayload(task)
	if err != nil {
		t.Fatalf("ParseCampaignRefreshPayload: %v", err)
	}
	if payload.CampaignID != campaignID {
		t.Fatalf("campaign id = %q, want %q", payload.CampaignID, campaignID)
	}
}

func TestPhoneOrphanReleasePayloadRoundTrip(t *testing.T) {
	orphanID := uuid.New().String()

	task, err := NewPhoneOrphanReleaseTask(PhoneOrphanReleasePayload{OrphanID: orphanID})
	if err != nil {
		t.Fatalf("NewPhoneOrphanReleaseTask: %v", err)
	}
	if task.Type() != TaskPhoneOrphanRelease {
		t.Fatalf("task type = %q, want %q", task.Type(), TaskPhoneOrphanRelease)
	}

	payload, err := ParsePhoneOrphanReleasePayload(task)
	if err != nil {
		t.Fatalf("ParsePhoneOrphanReleasePayload: %v", err)
	}
	if payload.OrphanID != orphanID {
		t.Fatalf("orphan id = %q, want %q", payload.OrphanID, orphanID)
	}
}
