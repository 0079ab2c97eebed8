/*
 * Copyright Tabular Pipeline Org. 2026
 *
 * contact@tabular-pipeline.io
 *
 * This software is part of the Tabular Pipeline project, an open-source
 * machine learning pipeline.
 *
 * This software is governed by the CeCILL license, compatible with the
 * GNU GPL, under French law and abiding by the rules of distribution of
 * free software. You can  use, modify and/ or redistribute the software
 * under the terms of the CeCILL license as circulated by CEA, CNRS and
 * INRIA at the following URL "http://www.cecill.info".
 *
 * As a counterpart to the access to the source code and  rights to copy,
 * modify and redistribute granted by the license, users are provided only
 * with a limited warranty  and the software's author,  the holder of the
 * economic rights,  and the successive licensors  have only  limited
 * liability.
 *
 * In this respect, the user's attention is drawn to the risks associated
 * with loading,  using,  modifying and/or developing or reproducing the
 * software by the user in light of its specific status of free software,
 * that may mean  that it is complicated to manipulate,  and  that  also
 * therefore means  that it is reserved for developers  and  experienced
 * professionals having in-depth computer knowledge. Users are therefore
 * encouraged to load and test the software's suitability as regards their
 * requirements in conditions enabling the security of their systems and/or
 * data to be ensured and,  more generally, to use and operate it in the
 * same conditions as regards security.
 *
 * The fact that you are presently reading this means that you have had
 * knowledge of the CeCILL license and that you accept its terms.
 */

package common

import (
	"fmt"
	"time"

	"github.com/satori/go.uuid"
)

// Request types
const (
	TypeTrainRequest     = "train"
	TypeTransformRequest = "transform"
	TypePredictRequest   = "predict"
)

var (
	// ValidKinds is a set of all possible pipeline run kinds
	ValidKinds = map[string]struct{}{
		TypeTrainRequest:     struct{}{},
		TypeTransformRequest: struct{}{},
		TypePredictRequest:   struct{}{},
	}
)

// Run statuses
const (
	RunStatusTodo    = "todo"
	RunStatusWaiting = "waiting"
	RunStatusPending = "pending"
	RunStatusDone    = "done"
	RunStatusFailed  = "failed"
)

var (
	// ValidStatuses is a set of all possible values for the "status" field
	ValidStatuses = map[string]struct{}{
		RunStatusTodo:    struct{}{},
		RunStatusWaiting: struct{}{},
		RunStatusPending: struct{}{},
		RunStatusDone:    struct{}{},
		RunStatusFailed:  struct{}{},
	}
)

// Broker topics for queued pipeline requests
const (
	TrainTopic     = "pipeline-train"
	TransformTopic = "pipeline-transform"
)

// Checkable is an Interface for things that can be Checked (i.e. validated after a JSON parsing for
// instance)
type Checkable interface {
	Check() (err error)
}

// TrainRequest describes a training task to be run on the managed platform: which dataset to train
// on, which container image runs the training script and where the model artifact should land.
type TrainRequest struct {
	Checkable

	ID              uuid.UUID         `json:"uuid"`
	DatasetKey      string            `json:"dataset_key"`
	TargetColumn    string            `json:"target_column"`
	TrainingImage   string            `json:"training_image"`
	RoleARN         string            `json:"role_arn"`
	InstanceType    string            `json:"instance_type"`
	InstanceCount   int               `json:"instance_count"`
	Hyperparameters map[string]string `json:"hyperparameters"`
	OutputPrefix    string            `json:"output_prefix"`
	Status          string            `json:"status"`
	RequestDate     time.Time         `json:"timestamp_request"`
	CompletionDate  time.Time         `json:"timestamp_done"`
}

// Check returns nil if the train request is valid, an explicit error otherwise
func (r *TrainRequest) Check() (err error) {

	if uuid.Equal(uuid.Nil, r.ID) {
		return fmt.Errorf("uuid field is unset")
	}

	if r.DatasetKey == "" {
		return fmt.Errorf("dataset_key field is unset")
	}

	if r.TargetColumn == "" {
		return fmt.Errorf("target_column field is unset")
	}

	if r.TrainingImage == "" {
		return fmt.Errorf("training_image field is unset")
	}

	if r.InstanceCount <= 0 {
		return fmt.Errorf("instance_count field must be strictly positive (provided: %d)", r.InstanceCount)
	}

	if r.OutputPrefix == "" {
		return fmt.Errorf("output_prefix field is unset")
	}

	if _, ok := ValidStatuses[r.Status]; !ok {
		return fmt.Errorf("status field ain't valid (provided: %s, possible choices: %s)", r.Status, ValidStatuses)
	}

	return nil
}

// TransformRequest describes a batch transform task: apply a trained model to a bulk input file
// and write bulk predictions under the output prefix, without a persistent endpoint.
type TransformRequest struct {
	Checkable

	ID           uuid.UUID `json:"uuid"`
	ModelName    string    `json:"model_name"`
	InputKey     string    `json:"input_key"`
	OutputPrefix string    `json:"output_prefix"`
	// LabelsKey optionally points at the actual labels of the input rows. When set, whoever
	// runs the transform can tally the accuracy of its output.
	LabelsKey      string    `json:"labels_key"`
	InstanceType   string    `json:"instance_type"`
	InstanceCount  int       `json:"instance_count"`
	Status         string    `json:"status"`
	RequestDate    time.Time `json:"timestamp_request"`
	CompletionDate time.Time `json:"timestamp_done"`
}

// Check returns nil if the transform request is valid, an explicit error otherwise
func (r *TransformRequest) Check() (err error) {

	if uuid.Equal(uuid.Nil, r.ID) {
		return fmt.Errorf("uuid field is unset")
	}

	if r.ModelName == "" {
		return fmt.Errorf("model_name field is unset")
	}

	if r.InputKey == "" {
		return fmt.Errorf("input_key field is unset")
	}

	if r.OutputPrefix == "" {
		return fmt.Errorf("output_prefix field is unset")
	}

	if r.InstanceCount <= 0 {
		return fmt.Errorf("instance_count field must be strictly positive (provided: %d)", r.InstanceCount)
	}

	if _, ok := ValidStatuses[r.Status]; !ok {
		return fmt.Errorf("status field ain't valid (provided: %s, possible choices: %s)", r.Status, ValidStatuses)
	}

	return nil
}

// PredictRequest describes a synchronous prediction against a live endpoint. The payload lives in
// the blob store under PayloadKey (CSV feature rows, no header, no target column).
type PredictRequest struct {
	Checkable

	ID             uuid.UUID `json:"uuid"`
	Endpoint       string    `json:"endpoint"`
	PayloadKey     string    `json:"payload_key"`
	Status         string    `json:"status"`
	RequestDate    time.Time `json:"timestamp_request"`
	CompletionDate time.Time `json:"timestamp_done"`
}

// Check returns nil if the predict request is valid, an explicit error otherwise
func (r *PredictRequest) Check() (err error) {

	if uuid.Equal(uuid.Nil, r.ID) {
		return fmt.Errorf("uuid field is unset")
	}

	if r.Endpoint == "" {
		return fmt.Errorf("endpoint field is unset")
	}

	if r.PayloadKey == "" {
		return fmt.Errorf("payload_key field is unset")
	}

	if _, ok := ValidStatuses[r.Status]; !ok {
		return fmt.Errorf("status field ain't valid (provided: %s, possible choices: %s)", r.Status, ValidStatuses)
	}

	return nil
}

// NewTrainRequest creates a TrainRequest with a fresh UUID and a "todo" status
func NewTrainRequest() *TrainRequest {
	return &TrainRequest{
		ID:          uuid.NewV4(),
		Status:      RunStatusTodo,
		RequestDate: time.Now(),
	}
}

// NewTransformRequest creates a TransformRequest with a fresh UUID and a "todo" status
func NewTransformRequest() *TransformRequest {
	return &TransformRequest{
		ID:          uuid.NewV4(),
		Status:      RunStatusTodo,
		RequestDate: time.Now(),
	}
}

// Run is the experiment tracking record for one pipeline task, whatever its kind. It is what the
// experiment API stores and lists.
type Run struct {
	ID              uuid.UUID `db:"uuid" json:"uuid" structs:"uuid"`
	Kind            string    `db:"kind" json:"kind" structs:"kind"`
	Status          string    `db:"status" json:"status" structs:"status"`
	JobName         string    `db:"job_name" json:"job_name" structs:"job_name"`
	ArtifactKey     string    `db:"artifact_key" json:"artifact_key" structs:"artifact_key"`
	Perf            float64   `db:"perf" json:"perf" structs:"perf"`
	TimestampUpload int64     `db:"timestamp_upload" json:"timestamp_upload" structs:"timestamp_upload"`
}

// NewRun creates a Run of the given kind, with a fresh UUID and a "todo" status
func NewRun(kind string) *Run {
	return &Run{
		ID:              uuid.NewV4(),
		Kind:            kind,
		Status:          RunStatusTodo,
		TimestampUpload: time.Now().Unix(),
	}
}

// Check returns nil if the run is valid, an explicit error otherwise
func (r *Run) Check() (err error) {
	if uuid.Equal(uuid.Nil, r.ID) {
		return fmt.Errorf("uuid field is unset")
	}

	if _, ok := ValidKinds[r.Kind]; !ok {
		return fmt.Errorf("kind field ain't valid (provided: %s, possible choices: %s)", r.Kind, ValidKinds)
	}

	if _, ok := ValidStatuses[r.Status]; !ok {
		return fmt.Errorf("status field ain't valid (provided: %s, possible choices: %s)", r.Status, ValidStatuses)
	}

	return nil
}

// APIError wraps errors sent back by the HTTP API
type APIError struct {
	Message string `json:"error"`
}

// NewAPIError creates an APIError object, given an error message
func NewAPIError(message string) (err *APIError) {
	return &APIError{
		Message: message,
	}
}

// Error returns the error message
func (err *APIError) Error() string {
	return err.Message
}
