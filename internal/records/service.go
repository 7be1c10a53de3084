// Copyright 2024 AI SA Assistant Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package records exposes create, read, update and delete operations over
// the hatchery tables that feed the analytics tools.
package records

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/your-org/hatchery-assistant/internal/resilience"
	"github.com/your-org/hatchery-assistant/internal/store"
)

const (
	// DefaultListLimit applies when a list request names no limit
	DefaultListLimit = 50
	// MaxListLimit caps every list request
	MaxListLimit = 500
)

// FieldError describes one rejected payload field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newFieldError(field, message string) error {
	return resilience.NewBadRequestError(FieldError{Field: field, Message: message}.Error(), nil)
}

// ListParams narrows a list request
type ListParams struct {
	Filters map[string]string
	From    string
	To      string
	Limit   int
}

// Service runs record operations against the store
type Service struct {
	db        *store.DB
	resources map[string]Resource
	validate  *validator.Validate
	now       func() time.Time
	logger    *zap.Logger
}

// NewService creates a records service over db
func NewService(db *store.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:        db,
		resources: Catalog(),
		validate:  validator.New(),
		now:       time.Now,
		logger:    logger,
	}
}

// Resources lists the resource names in a stable order
func (s *Service) Resources() []string {
	names := make([]string, 0, len(s.resources))
	for name := range s.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Service) resource(name string) (Resource, error) {
	r, ok := s.resources[name]
	if !ok {
		return Resource{}, resilience.NewNotFoundError(fmt.Sprintf("unknown resource %q", name), nil)
	}
	return r, nil
}

// List returns rows newest first. Filters outside the resource's allow-list are rejected.
func (s *Service) List(ctx context.Context, name string, params ListParams) ([]store.Row, error) {
	r, err := s.resource(name)
	if err != nil {
		return nil, err
	}

	q := s.db.From(r.Table)
	for column, value := range params.Filters {
		if !contains(r.Filters, column) {
			return nil, resilience.NewBadRequestError(fmt.Sprintf("%s cannot be filtered by %q", name, column), nil)
		}
		if strings.HasSuffix(column, "_id") {
			id, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, newFieldError(column, "must be an integer id")
			}
			q = q.Eq(column, id)
			continue
		}
		q = q.Eq(column, value)
	}

	if params.From != "" || params.To != "" {
		if r.DateColumn == "" {
			return nil, resilience.NewBadRequestError(fmt.Sprintf("%s has no date column to range over", name), nil)
		}
		if params.From != "" {
			if _, err := time.Parse(store.DateLayout, params.From); err != nil {
				return nil, newFieldError("from", "must be a YYYY-MM-DD date")
			}
			q = q.Gte(r.DateColumn, params.From)
		}
		if params.To != "" {
			if _, err := time.Parse(store.DateLayout, params.To); err != nil {
				return nil, newFieldError("to", "must be a YYYY-MM-DD date")
			}
			q = q.Lte(r.DateColumn, params.To)
		}
	}

	limit := params.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if r.DateColumn != "" {
		q = q.Order(r.DateColumn, false)
	}
	rows, err := q.Order("id", false).Limit(limit).Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", name, err)
	}
	for _, row := range rows {
		normalizeDates(r, row)
	}
	return rows, nil
}

// Get returns one row by id
func (s *Service) Get(ctx context.Context, name string, id int64) (store.Row, error) {
	r, err := s.resource(name)
	if err != nil {
		return nil, err
	}
	return s.get(ctx, r, id)
}

func (s *Service) get(ctx context.Context, r Resource, id int64) (store.Row, error) {
	row, found, err := s.db.From(r.Table).Eq("id", id).First(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s %d: %w", r.Name, id, err)
	}
	if !found {
		return nil, resilience.NewNotFoundError(fmt.Sprintf("%s %d does not exist", r.Name, id), nil)
	}
	normalizeDates(r, row)
	return row, nil
}

// Create inserts a row from a decoded payload and returns the stored row
func (s *Service) Create(ctx context.Context, name string, payload interface{}) (store.Row, error) {
	r, err := s.resource(name)
	if err != nil {
		return nil, err
	}
	values, err := s.checked(r, payload)
	if err != nil {
		return nil, err
	}
	for _, field := range r.Required {
		if values.IsNull(field) {
			return nil, newFieldError(field, "is required")
		}
	}

	if r.derive != nil {
		if err := r.derive(clone(values), values); err != nil {
			return nil, err
		}
	}
	values["created_at"] = s.now().UTC()

	id, err := s.db.From(r.Table).Insert(ctx, values)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", name, err)
	}
	s.logger.Info("Record created", zap.String("resource", name), zap.Int64("id", id))
	return s.get(ctx, r, id)
}

// Update applies a partial payload to an existing row. Derived columns are
// recomputed from the merged state.
func (s *Service) Update(ctx context.Context, name string, id int64, payload interface{}) (store.Row, error) {
	r, err := s.resource(name)
	if err != nil {
		return nil, err
	}
	changes, err := s.checked(r, payload)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return nil, resilience.NewBadRequestError("no fields to update", nil)
	}

	existing, err := s.get(ctx, r, id)
	if err != nil {
		return nil, err
	}
	merged := clone(existing)
	for k, v := range changes {
		merged[k] = v
	}
	if r.derive != nil {
		if err := r.derive(merged, changes); err != nil {
			return nil, err
		}
	}

	if _, err := s.db.From(r.Table).Eq("id", id).Update(ctx, changes); err != nil {
		return nil, fmt.Errorf("failed to update %s %d: %w", name, id, err)
	}
	s.logger.Info("Record updated", zap.String("resource", name), zap.Int64("id", id), zap.Int("fields", len(changes)))
	return s.get(ctx, r, id)
}

// Delete removes a row by id
func (s *Service) Delete(ctx context.Context, name string, id int64) error {
	r, err := s.resource(name)
	if err != nil {
		return err
	}
	n, err := s.db.From(r.Table).Eq("id", id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete %s %d: %w", name, id, err)
	}
	if n == 0 {
		return resilience.NewNotFoundError(fmt.Sprintf("%s %d does not exist", name, id), nil)
	}
	s.logger.Info("Record deleted", zap.String("resource", name), zap.Int64("id", id))
	return nil
}

// NewPayload returns an empty payload value for binding a request body
func (s *Service) NewPayload(name string) (interface{}, error) {
	r, err := s.resource(name)
	if err != nil {
		return nil, err
	}
	return r.newPayload(), nil
}

// checked validates the payload struct and flattens its set fields
func (s *Service) checked(r Resource, payload interface{}) (store.Row, error) {
	if payload == nil {
		payload = r.newPayload()
	}
	if err := s.validate.Struct(payload); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) && len(fields) > 0 {
			f := fields[0]
			return nil, newFieldError(jsonName(payload, f.StructField()), "failed "+f.Tag()+" rule")
		}
		return nil, resilience.NewBadRequestError("validation failed", err)
	}
	return toRow(payload), nil
}

func clone(r store.Row) store.Row {
	out := make(store.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// toRow turns a payload struct into column values, skipping nil pointers
func toRow(payload interface{}) store.Row {
	v := reflect.Indirect(reflect.ValueOf(payload))
	t := v.Type()
	out := make(store.Row, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := v.Field(i)
		if field.Kind() != reflect.Ptr || field.IsNil() {
			continue
		}
		column := strings.Split(t.Field(i).Tag.Get("json"), ",")[0]
		if column == "" || column == "-" {
			continue
		}
		out[column] = field.Elem().Interface()
	}
	return out
}

func jsonName(payload interface{}, structField string) string {
	t := reflect.Indirect(reflect.ValueOf(payload)).Type()
	if f, ok := t.FieldByName(structField); ok {
		if name := strings.Split(f.Tag.Get("json"), ",")[0]; name != "" {
			return name
		}
	}
	return structField
}

// normalizeDates renders DATE columns as YYYY-MM-DD whatever the driver returned
func normalizeDates(r Resource, values store.Row) {
	for column := range values {
		if column == "created_at" {
			continue
		}
		if column == r.DateColumn || strings.HasSuffix(column, "_date") {
			if d := values.DateString(column); d != "" {
				values[column] = d
			}
		}
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
