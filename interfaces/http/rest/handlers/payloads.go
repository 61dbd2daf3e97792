package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"neurotwin-backend/domain/config"
	"neurotwin-backend/domain/core/aggregates"
	"neurotwin-backend/domain/core/entities"
	"neurotwin-backend/domain/core/valueobjects"
	pkgerrors "neurotwin-backend/pkg/errors"

	"github.com/go-playground/validator/v10"
)

// GraphPayload is the wire shape of a graph ingestion request
type GraphPayload struct {
	ID          string              `json:"id"`
	PatientID   string              `json:"patientId"`
	CapturedAt  *time.Time          `json:"capturedAt"`
	Regions     []RegionPayload     `json:"regions" validate:"required,min=1,dive"`
	Connections []ConnectionPayload `json:"connections" validate:"dive"`
}

// RegionPayload is the wire shape of one region
type RegionPayload struct {
	ID            string          `json:"id" validate:"required"`
	Name          string          `json:"name" validate:"required"`
	Position      PositionPayload `json:"position"`
	BaseColor     string          `json:"baseColor" validate:"omitempty,hexcolor"`
	ActivityLevel float64         `json:"activityLevel" validate:"gte=0,lte=1"`
	Hemisphere    string          `json:"hemisphere" validate:"omitempty,oneof=left right"`
	Confidence    *float64        `json:"confidence" validate:"omitempty,gte=0,lte=1"`
}

// PositionPayload is the wire shape of a 3D coordinate
type PositionPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ConnectionPayload is the wire shape of one connection
type ConnectionPayload struct {
	ID            string   `json:"id" validate:"required"`
	SourceID      string   `json:"sourceId" validate:"required"`
	TargetID      string   `json:"targetId" validate:"required"`
	Strength      float64  `json:"strength" validate:"gte=0,lte=1"`
	Type          string   `json:"type" validate:"required,oneof=excitatory inhibitory bidirectional modulatory"`
	ActivityLevel *float64 `json:"activityLevel" validate:"omitempty,gte=0,lte=1"`
}

// newPayloadValidator builds a validator whose error namespaces use the
// JSON field names, so a failure reports the path the caller actually
// sent (e.g. "regions[3].activityLevel").
func newPayloadValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError converts the first validator failure into the
// structured field-path error the ingestion contract requires.
func validationError(payloadName string, err error) error {
	var verrs validator.ValidationErrors
	if ok := errors.As(err, &verrs); ok && len(verrs) > 0 {
		fe := verrs[0]
		// Namespace is "graphPayload.regions[3].activityLevel"; drop the
		// payload struct prefix.
		path := fe.Namespace()
		if idx := strings.Index(path, "."); idx >= 0 {
			path = path[idx+1:]
		}
		return pkgerrors.NewFieldValidationError(path, fmt.Sprintf("failed %q validation", fe.Tag()))
	}
	return pkgerrors.NewGraphValidationError(payloadName + ": " + err.Error())
}

// ParseGraphDocument decodes and fully validates a raw graph document,
// the same path an HTTP ingest takes. Used by the offline check tool.
func ParseGraphDocument(data []byte, cfg *config.DomainConfig) (*aggregates.BrainGraph, error) {
	var payload GraphPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, pkgerrors.NewGraphValidationError("document does not match the graph schema: " + err.Error())
	}
	if err := newPayloadValidator().Struct(payload); err != nil {
		return nil, validationError("graph document", err)
	}
	return payload.ToDomain(cfg)
}

// ToDomain builds the validated BrainGraph aggregate from the payload.
// Field-level shape was already checked by the validator; this step
// constructs the typed domain objects and lets the aggregate enforce
// the referential invariant.
func (p GraphPayload) ToDomain(cfg *config.DomainConfig) (*aggregates.BrainGraph, error) {
	regions := make([]*entities.Region, 0, len(p.Regions))
	for i, rp := range p.Regions {
		region, err := rp.toDomain()
		if err != nil {
			return nil, pkgerrors.Wrap(err, fmt.Sprintf("regions[%d]", i))
		}
		regions = append(regions, region)
	}

	connections := make([]*entities.Connection, 0, len(p.Connections))
	for i, cp := range p.Connections {
		connection, err := cp.toDomain()
		if err != nil {
			return nil, pkgerrors.Wrap(err, fmt.Sprintf("connections[%d]", i))
		}
		connections = append(connections, connection)
	}

	var capturedAt time.Time
	if p.CapturedAt != nil {
		capturedAt = *p.CapturedAt
	}

	return aggregates.NewBrainGraph(
		valueobjects.GraphIDFromString(p.ID),
		p.PatientID,
		capturedAt,
		regions,
		connections,
		cfg,
	)
}

func (p RegionPayload) toDomain() (*entities.Region, error) {
	id, err := valueobjects.NewRegionID(p.ID)
	if err != nil {
		return nil, err
	}

	position, err := valueobjects.NewPosition3D(p.Position.X, p.Position.Y, p.Position.Z)
	if err != nil {
		return nil, err
	}

	color, err := valueobjects.NewColor(p.BaseColor)
	if err != nil {
		return nil, err
	}

	activity, err := valueobjects.NewActivityLevel(p.ActivityLevel)
	if err != nil {
		return nil, err
	}

	opts := []entities.RegionOption{}
	if p.Hemisphere != "" {
		opts = append(opts, entities.WithHemisphere(entities.Hemisphere(p.Hemisphere)))
	}
	if p.Confidence != nil {
		opts = append(opts, entities.WithConfidence(*p.Confidence))
	}

	return entities.NewRegion(id, p.Name, position, color, activity, opts...)
}

func (p ConnectionPayload) toDomain() (*entities.Connection, error) {
	id, err := valueobjects.NewConnectionID(p.ID)
	if err != nil {
		return nil, err
	}

	sourceID, err := valueobjects.NewRegionID(p.SourceID)
	if err != nil {
		return nil, err
	}

	targetID, err := valueobjects.NewRegionID(p.TargetID)
	if err != nil {
		return nil, err
	}

	var activity *valueobjects.ActivityLevel
	if p.ActivityLevel != nil {
		level, err := valueobjects.NewActivityLevel(*p.ActivityLevel)
		if err != nil {
			return nil, err
		}
		activity = &level
	}

	return entities.NewConnection(id, sourceID, targetID, p.Strength, entities.ConnectionType(p.Type), activity)
}
