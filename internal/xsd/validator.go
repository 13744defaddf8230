// Package xsd validates outbound documents against the clearinghouse schemas before they are sent.
package xsd

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/Ometra-Hela/Alize/internal/model"
)

const defaultSchemaFile = "NPCData.xsd"

var schemaFiles = map[model.MessageType]string{
	model.MessageTypePortRequest:              "PortRequest.xsd",
	model.MessageTypePortRequestAck:           "PortRequestAck.xsd",
	model.MessageTypePortResponse:             "PortResponse.xsd",
	model.MessageTypeSchedulePortRequest:      "SchedulePort.xsd",
	model.MessageTypeSchedulePortNotification: "SchedulePort.xsd",
	model.MessageTypeCancellationRequest:      "Cancellation.xsd",
}

// SchemaFile names the schema used for mt.
func SchemaFile(mt model.MessageType) string {
	if name, ok := schemaFiles[mt]; ok {
		return name
	}

	return defaultSchemaFile
}

// Validator loads schemas lazily from dir. A missing directory or schema file is
// logged and treated as valid so deployments without the schema bundle keep working.
type Validator struct {
	dir    string
	logger *zap.Logger

	mu      sync.Mutex
	schemas map[string]*Schema
}

func NewValidator(dir string, logger *zap.Logger) *Validator {
	return &Validator{
		dir:     dir,
		logger:  logger.Named("xsd-validator"),
		schemas: make(map[string]*Schema),
	}
}

func (v *Validator) Validate(xml string, mt model.MessageType) error {
	if !v.available() {
		v.logger.Warn("XSD schemas not available, skipping validation", zap.String("xsd.dir", v.dir))
		return nil
	}

	file := filepath.Join(v.dir, SchemaFile(mt))

	schema, err := v.schema(file)
	if errors.Is(err, fs.ErrNotExist) {
		v.logger.Warn("XSD schema file not found",
			zap.String("xsd.file", file),
			zap.Int("message.type", mt.Code()))

		return nil
	}

	if err != nil {
		return model.NewConfigurationError("load schema %s: %v", file, err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString(xml); err != nil {
		return model.NewValidationError("XSD validation failed: %v", err)
	}

	if violations := schema.Validate(doc); len(violations) > 0 {
		return model.NewValidationError("XSD validation failed: %s", strings.Join(violations, "; "))
	}

	return nil
}

func (v *Validator) available() bool {
	if v.dir == "" {
		return false
	}

	info, err := os.Stat(v.dir)

	return err == nil && info.IsDir()
}

func (v *Validator) schema(file string) (*Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if s, ok := v.schemas[file]; ok {
		return s, nil
	}

	s, err := LoadSchema(file)
	if err != nil {
		return nil, err
	}

	v.schemas[file] = s

	return s, nil
}
