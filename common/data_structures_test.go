package common

import (
	"encoding/json"
	"testing"

	uuid "github.com/satori/go.uuid"
)

func validTrainRequest() *TrainRequest {
	req := NewTrainRequest()
	req.DatasetKey = "census/train/train.csv"
	req.TargetColumn = "class"
	req.TrainingImage = "123456789012.dkr.ecr.us-east-1.amazonaws.com/tabular-train:latest"
	req.InstanceType = "ml.m5.2xlarge"
	req.InstanceCount = 1
	req.OutputPrefix = "census/output"
	return req
}

func TestTrainRequestCheck(t *testing.T) {
	if err := validTrainRequest().Check(); err != nil {
		t.Errorf("Expected a valid train request, got: %s", err)
	}

	req := validTrainRequest()
	req.ID = uuid.Nil
	if err := req.Check(); err == nil {
		t.Errorf("Expected an error on a nil uuid")
	}

	req = validTrainRequest()
	req.DatasetKey = ""
	if err := req.Check(); err == nil {
		t.Errorf("Expected an error on an unset dataset key")
	}

	req = validTrainRequest()
	req.InstanceCount = 0
	if err := req.Check(); err == nil {
		t.Errorf("Expected an error on a zero instance count")
	}

	req = validTrainRequest()
	req.Status = "procrastinating"
	if err := req.Check(); err == nil {
		t.Errorf("Expected an error on an invalid status")
	}
}

func validTransformRequest() *TransformRequest {
	req := NewTransformRequest()
	req.ModelName = "tabular-model-test"
	req.InputKey = "census/test/test.csv"
	req.OutputPrefix = "census/transform-output"
	req.InstanceType = "ml.m5.2xlarge"
	req.InstanceCount = 1
	return req
}

func TestTransformRequestCheck(t *testing.T) {
	if err := validTransformRequest().Check(); err != nil {
		t.Errorf("Expected a valid transform request, got: %s", err)
	}

	// LabelsKey is optional
	req := validTransformRequest()
	req.LabelsKey = "census/test/labels.csv"
	if err := req.Check(); err != nil {
		t.Errorf("Expected a valid transform request with labels, got: %s", err)
	}

	req = validTransformRequest()
	req.ModelName = ""
	if err := req.Check(); err == nil {
		t.Errorf("Expected an error on an unset model name")
	}

	req = validTransformRequest()
	req.InputKey = ""
	if err := req.Check(); err == nil {
		t.Errorf("Expected an error on an unset input key")
	}
}

func TestPredictRequestCheck(t *testing.T) {
	req := &PredictRequest{
		ID:         uuid.NewV4(),
		Endpoint:   "tabular-model-test-endpoint",
		PayloadKey: "census/test/test.csv",
		Status:     RunStatusTodo,
	}
	if err := req.Check(); err != nil {
		t.Errorf("Expected a valid predict request, got: %s", err)
	}

	req.Endpoint = ""
	if err := req.Check(); err == nil {
		t.Errorf("Expected an error on an unset endpoint")
	}
}

func TestRunCheck(t *testing.T) {
	run := NewRun(TypeTrainRequest)
	if err := run.Check(); err != nil {
		t.Errorf("Expected a valid run, got: %s", err)
	}

	run.Kind = "divination"
	if err := run.Check(); err == nil {
		t.Errorf("Expected an error on an invalid kind")
	}
}

func TestTrainRequestJSONRoundTrip(t *testing.T) {
	req := validTrainRequest()
	req.Hyperparameters = map[string]string{"presets": "best_quality"}

	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Error marshaling train request: %s", err)
	}

	var decoded TrainRequest
	if err = json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("Error un-marshaling train request: %s", err)
	}
	if err = decoded.Check(); err != nil {
		t.Errorf("Decoded train request ain't valid: %s", err)
	}
	if !uuid.Equal(decoded.ID, req.ID) {
		t.Errorf("UUID changed through the JSON round trip")
	}
	if decoded.Hyperparameters["presets"] != "best_quality" {
		t.Errorf("Hyperparameters lost through the JSON round trip")
	}
}
