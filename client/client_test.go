package client

import (
	"strings"
	"testing"
	"time"

	uuid "github.com/satori/go.uuid"

	"github.com/dinaAbdelrahman/tabular-pipeline/common"
)

func testTrainRequest() *common.TrainRequest {
	req := common.NewTrainRequest()
	req.DatasetKey = "census/train/train.csv"
	req.TargetColumn = "class"
	req.TrainingImage = "tabular-train:latest"
	req.InstanceType = "ml.m5.2xlarge"
	req.InstanceCount = 1
	req.OutputPrefix = "census/output"
	return req
}

func TestTrainerMock(t *testing.T) {
	trainer := NewTrainerMock()

	req := testTrainRequest()
	jobName, err := trainer.CreateTrainingJob(req)
	if err != nil {
		t.Fatalf("Error creating training job: %s", err)
	}
	if !strings.HasPrefix(jobName, "tabular-train-") {
		t.Errorf("Unexpected job name: %s", jobName)
	}

	artifactURL, err := trainer.WaitForTrainingJob(jobName, time.Millisecond, time.Second)
	if err != nil {
		t.Fatalf("Error waiting for training job: %s", err)
	}
	if artifactURL == "" {
		t.Errorf("Expected a model artifact URL")
	}

	// An invalid request must be rejected before anything is submitted
	invalid := testTrainRequest()
	invalid.DatasetKey = ""
	if _, err = trainer.CreateTrainingJob(invalid); err == nil {
		t.Errorf("Expected an error on an invalid train request")
	}

	// The evil UUID makes the submission fail
	evil := testTrainRequest()
	evil.ID = uuid.FromStringOrNil("58bc25d9-712d-4a53-8e73-2d6ca4d837c2")
	if _, err = trainer.CreateTrainingJob(evil); err == nil {
		t.Errorf("Expected an error on the evil train request")
	}
}

func TestDeployerMock(t *testing.T) {
	deployer := NewDeployerMock()

	if err := deployer.CreateModel("tabular-model-test", "tabular-train:latest", "s3://fake/model.tar.gz"); err != nil {
		t.Fatalf("Error creating model: %s", err)
	}

	endpointName, err := deployer.CreateEndpoint("tabular-model-test", "ml.m5.2xlarge", 1)
	if err != nil {
		t.Fatalf("Error creating endpoint: %s", err)
	}
	if endpointName != "tabular-model-test-endpoint" {
		t.Errorf("Unexpected endpoint name: %s", endpointName)
	}

	if err = deployer.WaitForEndpoint(endpointName, time.Millisecond, time.Second); err != nil {
		t.Fatalf("Error waiting for endpoint: %s", err)
	}

	if err = deployer.TearDown("tabular-model-test", endpointName); err != nil {
		t.Fatalf("Error tearing down endpoint: %s", err)
	}
	if err = deployer.WaitForEndpoint(endpointName, time.Millisecond, time.Second); err == nil {
		t.Errorf("Expected an error waiting for a torn down endpoint")
	}

	// The evil model name makes everything fail
	if err = deployer.CreateModel("devil-model", "tabular-train:latest", "s3://fake/model.tar.gz"); err == nil {
		t.Errorf("Expected an error on the evil model name")
	}
	if _, err = deployer.CreateEndpoint("devil-model", "ml.m5.2xlarge", 1); err == nil {
		t.Errorf("Expected an error on the evil model name")
	}
}

func TestPredictorMock(t *testing.T) {
	predictor := NewPredictorMock("<=50K")

	payload := []byte("39,State-gov,77516\n50,Self-emp-not-inc,83311\n")
	predictions, err := predictor.Predict("tabular-model-test-endpoint", payload)
	if err != nil {
		t.Fatalf("Error invoking endpoint: %s", err)
	}
	if len(predictions) != 2 {
		t.Fatalf("Expected 2 predictions, got %d", len(predictions))
	}
	for _, prediction := range predictions {
		if prediction != "<=50K" {
			t.Errorf("Expected the majority label, got %s", prediction)
		}
	}

	if _, err = predictor.Predict("devil-endpoint", payload); err == nil {
		t.Errorf("Expected an error on the evil endpoint")
	}
}

func TestTransformerMock(t *testing.T) {
	store := common.NewFakeBlobStore()
	transformer := NewTransformerMock(store, "<=50K")

	input := "39,State-gov,77516\n50,Self-emp-not-inc,83311\n38,Private,215646\n"
	if err := store.Put("census/test/test.csv", strings.NewReader(input), int64(len(input))); err != nil {
		t.Fatalf("Error uploading transform input: %s", err)
	}

	req := common.NewTransformRequest()
	req.ModelName = "tabular-model-test"
	req.InputKey = "census/test/test.csv"
	req.OutputPrefix = "census/transform-output"
	req.InstanceType = "ml.m5.2xlarge"
	req.InstanceCount = 1

	jobName, err := transformer.CreateTransformJob(req)
	if err != nil {
		t.Fatalf("Error creating transform job: %s", err)
	}

	if err = transformer.WaitForTransformJob(jobName, time.Millisecond, time.Second); err != nil {
		t.Fatalf("Error waiting for transform job: %s", err)
	}

	predictions, err := transformer.FetchTransformOutput(req.OutputPrefix, store)
	if err != nil {
		t.Fatalf("Error fetching transform output: %s", err)
	}
	if len(predictions) != 3 {
		t.Fatalf("Expected 3 predictions (one per input line), got %d", len(predictions))
	}

	// The evil UUID makes the submission fail
	evil := common.NewTransformRequest()
	evil.ID = uuid.FromStringOrNil("610e134a-ff45-4416-aaac-1b3398e4bba6")
	evil.ModelName = "tabular-model-test"
	evil.InputKey = "census/test/test.csv"
	evil.OutputPrefix = "census/transform-output"
	evil.InstanceType = "ml.m5.2xlarge"
	evil.InstanceCount = 1
	if _, err = transformer.CreateTransformJob(evil); err == nil {
		t.Errorf("Expected an error on the evil transform request")
	}
}

func TestFetchTransformOutputEmpty(t *testing.T) {
	store := common.NewFakeBlobStore()
	transformer := NewTransformerMock(store, "<=50K")

	if _, err := transformer.FetchTransformOutput("census/nothing-here", store); err == nil {
		t.Errorf("Expected an error fetching an empty output prefix")
	}
}

func TestExperimentAPIMock(t *testing.T) {
	experiment := NewExperimentAPIMock()

	run := common.NewRun(common.TypeTrainRequest)
	if err := experiment.PostRun(run); err != nil {
		t.Fatalf("Error registering run: %s", err)
	}

	if err := experiment.UpdateRunStatus(run.ID, common.RunStatusPending); err != nil {
		t.Fatalf("Error updating run status: %s", err)
	}
	if err := experiment.UpdateRunStatus(run.ID, common.RunStatusDone); err != nil {
		t.Fatalf("Error updating run status: %s", err)
	}

	statuses := experiment.Statuses[run.ID.String()]
	if len(statuses) != 3 || statuses[2] != common.RunStatusDone {
		t.Errorf("Unexpected status history: %v", statuses)
	}

	// An invalid status must be rejected
	if err := experiment.UpdateRunStatus(run.ID, "procrastinating"); err == nil {
		t.Errorf("Expected an error on an invalid status")
	}

	perf := &common.Perf{Accuracy: 0.85}
	if err := experiment.PostRunPerf(run.ID, perf); err != nil {
		t.Fatalf("Error posting perf: %s", err)
	}
	if experiment.Perfs[run.ID.String()].Accuracy != 0.85 {
		t.Errorf("Perf report lost by the mock")
	}

	// The evil UUID makes everything fail
	evil := common.NewRun(common.TypeTrainRequest)
	evil.ID = uuid.FromStringOrNil("8f6563df-941d-4967-b517-f45169834741")
	if err := experiment.PostRun(evil); err == nil {
		t.Errorf("Expected an error on the evil run")
	}
}
