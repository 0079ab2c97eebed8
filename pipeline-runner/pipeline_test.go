package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dinaAbdelrahman/tabular-pipeline/client"
	"github.com/dinaAbdelrahman/tabular-pipeline/common"
)

const censusSample = ` 39, State-gov, 77516, Bachelors, 13, Never-married, Adm-clerical, Not-in-family, White, Male, 2174, 0, 40, United-States, <=50K
 50, Self-emp-not-inc, 83311, Bachelors, 13, Married-civ-spouse, Exec-managerial, Husband, White, Male, 0, 0, 13, United-States, <=50K
 38, Private, 215646, HS-grad, 9, Divorced, Handlers-cleaners, Not-in-family, White, Male, 0, 0, 40, United-States, <=50K
 53, Private, 234721, 11th, 7, Married-civ-spouse, Handlers-cleaners, Husband, Black, Male, 0, 0, 40, United-States, <=50K
 28, Private, 338409, Bachelors, 13, Married-civ-spouse, Prof-specialty, Wife, Black, Female, 0, 0, 40, Cuba, >50K
 37, Private, 284582, Masters, 14, Married-civ-spouse, Exec-managerial, Wife, White, Female, 0, 0, 40, United-States, >50K
 49, Private, 160187, 9th, 5, Married-spouse-absent, Other-service, Not-in-family, Black, Female, 0, 0, 16, Jamaica, <=50K
 52, Self-emp-not-inc, 209642, HS-grad, 9, Married-civ-spouse, Exec-managerial, Husband, White, Male, 0, 0, 45, United-States, >50K
 31, Private, 45781, Masters, 14, Never-married, Prof-specialty, Not-in-family, White, Female, 14084, 0, 50, United-States, >50K
 42, Private, 159449, Bachelors, 13, Married-civ-spouse, Exec-managerial, Husband, White, Male, 5178, 0, 40, United-States, >50K
`

// producerMock records pushed messages instead of talking to NSQ
type producerMock struct {
	common.Producer

	pushed map[string][][]byte
}

func newProducerMock() *producerMock {
	return &producerMock{pushed: map[string][][]byte{}}
}

func (p *producerMock) Push(topic string, body []byte) error {
	p.pushed[topic] = append(p.pushed[topic], body)
	return nil
}

func (p *producerMock) Stop() {}

func setTestPipeline(t *testing.T) (*Pipeline, *client.ExperimentAPIMock, *common.FakeBlobStore, *httptest.Server) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(censusSample))
	}))

	conf := &RunnerConfig{
		Step: StepAll,

		DatasetURL:   server.URL,
		TargetColumn: common.DefaultTargetColumn,
		TestFraction: 0.3,
		Seed:         42,
		KeyPrefix:    "census",

		TrainingImage: "tabular-train:latest",
		InstanceType:  "ml.m5.2xlarge",
		InstanceCount: 1,
		PollInterval:  time.Millisecond,
		JobTimeout:    time.Second,

		PredictBatchSize: 2,
	}

	store := common.NewFakeBlobStore()
	experiment := client.NewExperimentAPIMock()
	pipeline := NewPipeline(
		conf,
		store,
		client.NewTrainerMock(),
		client.NewDeployerMock(),
		client.NewPredictorMock(common.DefaultMajorityLabel),
		client.NewTransformerMock(store, common.DefaultMajorityLabel),
		experiment,
	)
	return pipeline, experiment, store, server
}

func TestPrepare(t *testing.T) {
	pipeline, _, store, server := setTestPipeline(t)
	defer server.Close()

	if err := pipeline.Prepare(); err != nil {
		t.Fatalf("Error preparing dataset: %s", err)
	}

	for _, key := range []string{"census/train/train.csv", "census/test/test.csv", "census/test/labels.csv"} {
		keys, err := store.List(key)
		if err != nil {
			t.Fatalf("Error listing blobs: %s", err)
		}
		if len(keys) != 1 {
			t.Errorf("Expected blob %s to be uploaded", key)
		}
	}

	// The held-out feature file must not leak the target column
	features, labels, err := pipeline.fetchHoldout()
	if err != nil {
		t.Fatalf("Error fetching holdout: %s", err)
	}
	if len(features.Rows[0]) != len(common.DefaultCensusColumns)-1 {
		t.Errorf("Expected %d feature columns, got %d", len(common.DefaultCensusColumns)-1, len(features.Rows[0]))
	}
	if features.NumRows() != 3 {
		t.Errorf("Expected 3 held-out rows, got %d", features.NumRows())
	}
	if len(labels) != features.NumRows() {
		t.Errorf("Expected one label per held-out row, got %d labels for %d rows", len(labels), features.NumRows())
	}
}

func TestTrain(t *testing.T) {
	pipeline, experiment, _, server := setTestPipeline(t)
	defer server.Close()

	if err := pipeline.Prepare(); err != nil {
		t.Fatalf("Error preparing dataset: %s", err)
	}

	artifactURL, err := pipeline.Train()
	if err != nil {
		t.Fatalf("Error training: %s", err)
	}
	if artifactURL == "" {
		t.Errorf("Expected a model artifact URL")
	}

	// One train run, driven from todo to done
	if len(experiment.Statuses) != 1 {
		t.Fatalf("Expected 1 registered run, got %d", len(experiment.Statuses))
	}
	for id, statuses := range experiment.Statuses {
		if statuses[len(statuses)-1] != common.RunStatusDone {
			t.Errorf("Expected run %s to end done, got %v", id, statuses)
		}
	}
}

func TestAll(t *testing.T) {
	pipeline, experiment, _, server := setTestPipeline(t)
	defer server.Close()

	if err := pipeline.All(); err != nil {
		t.Fatalf("Error running the whole pipeline: %s", err)
	}

	// Three runs: train, predict, transform
	if len(experiment.Statuses) != 3 {
		t.Errorf("Expected 3 registered runs, got %d", len(experiment.Statuses))
	}

	// The predict and transform runs carry a perf report. The mocked clients predict the majority
	// label for every row, so both accuracies equal the majority fraction of the held-out labels.
	if len(experiment.Perfs) != 2 {
		t.Fatalf("Expected 2 perf reports, got %d", len(experiment.Perfs))
	}

	_, labels, err := pipeline.fetchHoldout()
	if err != nil {
		t.Fatalf("Error fetching holdout: %s", err)
	}
	majority := 0
	for _, label := range labels {
		if label == common.DefaultMajorityLabel {
			majority++
		}
	}
	expected := float64(majority) / float64(len(labels))

	for id, perf := range experiment.Perfs {
		if perf.Accuracy != expected {
			t.Errorf("Expected accuracy %f for run %s, got %f", expected, id, perf.Accuracy)
		}
	}
}

func TestEnqueue(t *testing.T) {
	pipeline, experiment, _, server := setTestPipeline(t)
	defer server.Close()

	producer := newProducerMock()
	if err := pipeline.Enqueue(producer); err != nil {
		t.Fatalf("Error enqueuing requests: %s", err)
	}

	if len(producer.pushed[common.TrainTopic]) != 1 {
		t.Errorf("Expected 1 message on topic %s", common.TrainTopic)
	}
	if len(producer.pushed[common.TransformTopic]) != 1 {
		t.Errorf("Expected 1 message on topic %s", common.TransformTopic)
	}

	// Both runs registered on the experiment API, still todo
	if len(experiment.Statuses) != 2 {
		t.Errorf("Expected 2 registered runs, got %d", len(experiment.Statuses))
	}
}
