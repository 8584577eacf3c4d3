package contracts

import (
	"encoding/json"
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// ParticipantContract manages the registry of supply chain identities.
// Registration happens once per participant, by an admin; records are never
// deleted in normal operation.
type ParticipantContract struct {
	contractapi.Contract
}

const participantKeyPrefix = "participant_"

func participantKey(participantID string) string {
	return participantKeyPrefix + participantID
}

type createParticipantArgs struct {
	ParticipantID    string `json:"participantId"`
	Role             string `json:"role"`
	OrganizationName string `json:"organizationName"`
	Location         string `json:"location"`
	Contact          string `json:"contact"`
	Status           string `json:"status"`
}

// CreateParticipant registers a new participant and files it under the role
// index. Re-registering an existing ID fails with ALREADY_EXISTS; the role
// is immutable after this point.
func (p *ParticipantContract) CreateParticipant(ctx contractapi.TransactionContextInterface,
	argsJSON string) (*CreateParticipantResult, error) {

	var args createParticipantArgs
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return nil, validationf("invalid createParticipant arguments: %v", err)
	}
	if args.ParticipantID == "" {
		return nil, validationf("participantId is required")
	}
	role, ok := ParseRole(args.Role)
	if !ok {
		return nil, validationf("invalid role %q", args.Role)
	}
	if args.OrganizationName == "" {
		return nil, validationf("organizationName is required")
	}
	status := ParticipantStatus(args.Status)
	if args.Status == "" {
		status = ParticipantStatusActive
	} else if status != ParticipantStatusActive && status != ParticipantStatusInactive {
		return nil, validationf("invalid status %q", args.Status)
	}

	if _, _, err := requireAction(ctx, actionRegisterParticipant); err != nil {
		return nil, err
	}

	stub := ctx.GetStub()
	key := participantKey(args.ParticipantID)
	existing, err := stub.GetState(key)
	if err != nil {
		return nil, fmt.Errorf("failed to read participant %s: %v", args.ParticipantID, err)
	}
	if existing != nil {
		return nil, alreadyExistsf("participant %s is already registered", args.ParticipantID)
	}

	now, err := txTimestamp(ctx)
	if err != nil {
		return nil, err
	}

	participant := Participant{
		ParticipantID:    args.ParticipantID,
		Role:             role,
		OrganizationName: args.OrganizationName,
		Location:         args.Location,
		Contact:          args.Contact,
		RegisteredDate:   now,
		Status:           status,
	}
	raw, err := json.Marshal(participant)
	if err != nil {
		return nil, fmt.Errorf("failed to encode participant %s: %v", args.ParticipantID, err)
	}
	if err := stub.PutState(key, raw); err != nil {
		return nil, fmt.Errorf("failed to store participant %s: %v", args.ParticipantID, err)
	}
	if err := indexPut(stub, roleParticipantIndex, string(role), args.ParticipantID); err != nil {
		return nil, err
	}
	return &CreateParticipantResult{Success: true, ParticipantID: args.ParticipantID}, nil
}

// GetParticipant returns a participant record by ID.
func (p *ParticipantContract) GetParticipant(ctx contractapi.TransactionContextInterface,
	participantID string) (*Participant, error) {

	if participantID == "" {
		return nil, validationf("participantId is required")
	}
	raw, err := ctx.GetStub().GetState(participantKey(participantID))
	if err != nil {
		return nil, fmt.Errorf("failed to read participant %s: %v", participantID, err)
	}
	if raw == nil {
		return nil, notFoundf("participant %s does not exist", participantID)
	}
	var participant Participant
	if err := json.Unmarshal(raw, &participant); err != nil {
		return nil, fmt.Errorf("failed to decode participant %s: %v", participantID, err)
	}
	return &participant, nil
}

// GetParticipantsByRole lists all participants registered under a role via
// the role index.
func (p *ParticipantContract) GetParticipantsByRole(ctx contractapi.TransactionContextInterface,
	role string) ([]*Participant, error) {

	parsed, ok := ParseRole(role)
	if !ok {
		return nil, validationf("invalid role %q", role)
	}
	ids, err := indexScan(ctx.GetStub(), roleParticipantIndex, string(parsed))
	if err != nil {
		return nil, err
	}
	participants := make([]*Participant, 0, len(ids))
	for _, id := range ids {
		participant, err := p.GetParticipant(ctx, id)
		if err != nil {
			return nil, err
		}
		participants = append(participants, participant)
	}
	return participants, nil
}
