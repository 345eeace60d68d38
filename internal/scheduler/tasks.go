package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskCampaignRefresh = "campaigns.refresh"

const TaskPhoneOrphanRelease = "phones.release_orphan"

type CampaignRefreshPayload struct {
	CampaignID string `json:"campaignId"`
}

type PhoneOrphanReleasePayload struct {
	OrphanID string `json:"orphanId"`
}

func NewCampaignRefreshTask(payload CampaignRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCampaignRefresh, data), nil
}

func ParseCampaignRefreshPayload(task *asynq.Task) (CampaignRefreshPayload, error) {
	var payload CampaignRefreshPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CampaignRefreshPayload{}, err
	}
	return payload, nil
}

func NewPhoneOrphanReleaseTask(payload PhoneOrphanReleasePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPhoneOrphanRelease, data), nil
}

func ParsePhoneOrphanReleasePayload(task *asynq.Task) (PhoneOrphanReleasePayload, error) {
	var payload PhoneOrphanReleasePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return PhoneOrphanReleasePayload{}, err
	}
	return payload, nil
}
