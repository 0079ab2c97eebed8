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

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"

	"github.com/dinaAbdelrahman/tabular-pipeline/client"
	"github.com/dinaAbdelrahman/tabular-pipeline/common"
)

// Pipeline strings the tutorial steps together: fetch and reshape the census dataset, train a
// model on the managed platform, serve it behind a real-time endpoint, run a batch transform over
// the held-out rows and tally the accuracy. Each step reads its inputs from the blob store so that
// they can also be run one at a time.
type Pipeline struct {
	conf *RunnerConfig

	store       common.BlobStore
	trainer     client.Trainer
	deployer    client.Deployer
	predictor   client.Predictor
	transformer client.Transformer
	experiment  client.Experiment
}

// NewPipeline creates a Pipeline instance
func NewPipeline(conf *RunnerConfig, store common.BlobStore, trainer client.Trainer, deployer client.Deployer, predictor client.Predictor, transformer client.Transformer, experiment client.Experiment) *Pipeline {
	return &Pipeline{
		conf: conf,

		store:       store,
		trainer:     trainer,
		deployer:    deployer,
		predictor:   predictor,
		transformer: transformer,
		experiment:  experiment,
	}
}

// Blob store keys, relative to the configured prefix
func (p *Pipeline) trainKey() string {
	return fmt.Sprintf("%s/train/train.csv", p.conf.KeyPrefix)
}

func (p *Pipeline) testKey() string {
	return fmt.Sprintf("%s/test/test.csv", p.conf.KeyPrefix)
}

func (p *Pipeline) labelsKey() string {
	return fmt.Sprintf("%s/test/labels.csv", p.conf.KeyPrefix)
}

func (p *Pipeline) outputPrefix() string {
	return fmt.Sprintf("%s/output", p.conf.KeyPrefix)
}

func (p *Pipeline) transformOutputPrefix() string {
	return fmt.Sprintf("%s/transform-output", p.conf.KeyPrefix)
}

func (p *Pipeline) putBlob(key string, content []byte) error {
	err := p.store.Put(key, bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return fmt.Errorf("Error uploading blob %s: %s", key, err)
	}
	log.Printf("[INFO] Uploaded %s (%d bytes)", key, len(content))
	return nil
}

// Prepare fetches the census dataset, splits it and uploads three blobs: the training set (header
// kept, target column included), the held-out feature rows (target stripped, no header, ready for
// the inference container) and the held-out labels.
func (p *Pipeline) Prepare() error {
	log.Printf("[INFO] Fetching dataset from %s", p.conf.DatasetURL)
	table, err := common.FetchCSV(p.conf.DatasetURL, common.DefaultCensusColumns)
	if err != nil {
		return fmt.Errorf("Error fetching dataset: %s", err)
	}
	log.Printf("[INFO] Dataset loaded: %d rows, %d columns", table.NumRows(), len(table.Header))

	train, test, err := table.Split(p.conf.TestFraction, p.conf.Seed)
	if err != nil {
		return fmt.Errorf("Error splitting dataset: %s", err)
	}
	log.Printf("[INFO] Split dataset: %d train rows, %d test rows", train.NumRows(), test.NumRows())

	trainCSV, err := train.Bytes(true)
	if err != nil {
		return fmt.Errorf("Error serializing training set: %s", err)
	}
	if err = p.putBlob(p.trainKey(), trainCSV); err != nil {
		return err
	}

	labels, err := test.Column(p.conf.TargetColumn)
	if err != nil {
		return fmt.Errorf("Error extracting label column: %s", err)
	}
	var labelsCSV bytes.Buffer
	for _, label := range labels {
		labelsCSV.WriteString(label)
		labelsCSV.WriteString("\n")
	}
	if err = p.putBlob(p.labelsKey(), labelsCSV.Bytes()); err != nil {
		return err
	}

	// The inference container must not see the target column, nor a header row
	features := test.Clone()
	if err = features.DropColumn(p.conf.TargetColumn); err != nil {
		return fmt.Errorf("Error dropping target column: %s", err)
	}
	featuresCSV, err := features.Bytes(false)
	if err != nil {
		return fmt.Errorf("Error serializing test features: %s", err)
	}
	return p.putBlob(p.testKey(), featuresCSV)
}

// Train submits the training job, registers it as a run on the experiment API and waits for the
// model artifact
func (p *Pipeline) Train() (artifactURL string, err error) {
	req := common.NewTrainRequest()
	req.DatasetKey = p.trainKey()
	req.TargetColumn = p.conf.TargetColumn
	req.TrainingImage = p.conf.TrainingImage
	req.RoleARN = p.conf.RoleARN
	req.InstanceType = p.conf.InstanceType
	req.InstanceCount = p.conf.InstanceCount
	req.Hyperparameters = p.conf.Hyperparameters()
	req.OutputPrefix = p.outputPrefix()

	run := common.NewRun(common.TypeTrainRequest)
	run.ID = req.ID
	if err = p.experiment.PostRun(run); err != nil {
		return "", fmt.Errorf("Error registering train run %s: %s", run.ID, err)
	}

	jobName, err := p.trainer.CreateTrainingJob(req)
	if err != nil {
		p.experiment.UpdateRunStatus(req.ID, common.RunStatusFailed)
		return "", fmt.Errorf("Error submitting training job: %s", err)
	}
	p.experiment.UpdateRunStatus(req.ID, common.RunStatusPending)

	artifactURL, err = p.trainer.WaitForTrainingJob(jobName, p.conf.PollInterval, p.conf.JobTimeout)
	if err != nil {
		p.experiment.UpdateRunStatus(req.ID, common.RunStatusFailed)
		return "", fmt.Errorf("Error waiting for training job %s: %s", jobName, err)
	}

	p.experiment.UpdateRunStatus(req.ID, common.RunStatusDone)
	log.Printf("[INFO] Training done, model artifact at %s", artifactURL)
	return artifactURL, nil
}

// Predict registers the trained model, stands up a real-time endpoint, streams the held-out
// feature rows through it batch by batch and tallies the accuracy. The endpoint and the model are
// torn down whatever happens, no billable resource outlives the step.
func (p *Pipeline) Predict(artifactURL string) (perf *common.Perf, err error) {
	run := common.NewRun(common.TypePredictRequest)
	if err = p.experiment.PostRun(run); err != nil {
		return nil, fmt.Errorf("Error registering predict run %s: %s", run.ID, err)
	}

	modelName := fmt.Sprintf("tabular-model-%s", run.ID)
	if err = p.deployer.CreateModel(modelName, p.conf.TrainingImage, artifactURL); err != nil {
		p.experiment.UpdateRunStatus(run.ID, common.RunStatusFailed)
		return nil, fmt.Errorf("Error registering model %s: %s", modelName, err)
	}

	endpointName, err := p.deployer.CreateEndpoint(modelName, p.conf.InstanceType, p.conf.InstanceCount)
	if err != nil {
		p.experiment.UpdateRunStatus(run.ID, common.RunStatusFailed)
		return nil, fmt.Errorf("Error creating endpoint for model %s: %s", modelName, err)
	}
	defer func() {
		if teardownErr := p.deployer.TearDown(modelName, endpointName); teardownErr != nil {
			log.Printf("[WARNING] Error tearing down endpoint %s: %s", endpointName, teardownErr)
		}
	}()

	p.experiment.UpdateRunStatus(run.ID, common.RunStatusPending)
	if err = p.deployer.WaitForEndpoint(endpointName, p.conf.PollInterval, p.conf.JobTimeout); err != nil {
		p.experiment.UpdateRunStatus(run.ID, common.RunStatusFailed)
		return nil, fmt.Errorf("Error waiting for endpoint %s: %s", endpointName, err)
	}

	features, labels, err := p.fetchHoldout()
	if err != nil {
		p.experiment.UpdateRunStatus(run.ID, common.RunStatusFailed)
		return nil, err
	}

	var predictions []string
	for start := 0; start < features.NumRows(); start += p.conf.PredictBatchSize {
		end := start + p.conf.PredictBatchSize
		if end > features.NumRows() {
			end = features.NumRows()
		}

		batch := &common.Table{Header: features.Header, Rows: features.Rows[start:end]}
		payload, err := batch.Bytes(false)
		if err != nil {
			p.experiment.UpdateRunStatus(run.ID, common.RunStatusFailed)
			return nil, fmt.Errorf("Error serializing prediction batch: %s", err)
		}

		batchPredictions, err := p.predictor.Predict(endpointName, payload)
		if err != nil {
			p.experiment.UpdateRunStatus(run.ID, common.RunStatusFailed)
			return nil, fmt.Errorf("Error invoking endpoint %s: %s", endpointName, err)
		}
		predictions = append(predictions, batchPredictions...)
	}

	perf, err = common.ComputePerf(predictions, labels)
	if err != nil {
		p.experiment.UpdateRunStatus(run.ID, common.RunStatusFailed)
		return nil, fmt.Errorf("Error computing perf: %s", err)
	}

	if err = p.experiment.PostRunPerf(run.ID, perf); err != nil {
		return nil, fmt.Errorf("Error posting perf of run %s: %s", run.ID, err)
	}

	log.Printf("[INFO] Endpoint predictions done, accuracy: %f", perf.Accuracy)
	return perf, nil
}

// Transform runs a batch transform over the held-out feature rows and tallies the accuracy of its
// bulk output, no endpoint involved
func (p *Pipeline) Transform(modelName string) (perf *common.Perf, err error) {
	req := common.NewTransformRequest()
	req.ModelName = modelName
	req.InputKey = p.testKey()
	req.OutputPrefix = p.transformOutputPrefix()
	req.LabelsKey = p.labelsKey()
	req.InstanceType = p.conf.InstanceType
	req.InstanceCount = p.conf.InstanceCount

	run := common.NewRun(common.TypeTransformRequest)
	run.ID = req.ID
	if err = p.experiment.PostRun(run); err != nil {
		return nil, fmt.Errorf("Error registering transform run %s: %s", run.ID, err)
	}

	jobName, err := p.transformer.CreateTransformJob(req)
	if err != nil {
		p.experiment.UpdateRunStatus(req.ID, common.RunStatusFailed)
		return nil, fmt.Errorf("Error submitting transform job: %s", err)
	}
	p.experiment.UpdateRunStatus(req.ID, common.RunStatusPending)

	if err = p.transformer.WaitForTransformJob(jobName, p.conf.PollInterval, p.conf.JobTimeout); err != nil {
		p.experiment.UpdateRunStatus(req.ID, common.RunStatusFailed)
		return nil, fmt.Errorf("Error waiting for transform job %s: %s", jobName, err)
	}

	predictions, err := p.transformer.FetchTransformOutput(req.OutputPrefix, p.store)
	if err != nil {
		p.experiment.UpdateRunStatus(req.ID, common.RunStatusFailed)
		return nil, fmt.Errorf("Error fetching output of transform job %s: %s", jobName, err)
	}

	_, labels, err := p.fetchHoldout()
	if err != nil {
		p.experiment.UpdateRunStatus(req.ID, common.RunStatusFailed)
		return nil, err
	}

	perf, err = common.ComputePerf(predictions, labels)
	if err != nil {
		p.experiment.UpdateRunStatus(req.ID, common.RunStatusFailed)
		return nil, fmt.Errorf("Error computing perf: %s", err)
	}

	if err = p.experiment.PostRunPerf(req.ID, perf); err != nil {
		return nil, fmt.Errorf("Error posting perf of run %s: %s", req.ID, err)
	}

	log.Printf("[INFO] Batch transform done, accuracy: %f", perf.Accuracy)
	return perf, nil
}

// All runs the whole tutorial pipeline in sequence
func (p *Pipeline) All() error {
	if err := p.Prepare(); err != nil {
		return err
	}

	artifactURL, err := p.Train()
	if err != nil {
		return err
	}

	if _, err = p.Predict(artifactURL); err != nil {
		return err
	}

	// The transform reuses the model registered by the prediction step on the real platform; the
	// mocked transformer doesn't care which model name it gets
	modelName := fmt.Sprintf("tabular-model-%s", common.NewRun(common.TypeTransformRequest).ID)
	if err = p.deployer.CreateModel(modelName, p.conf.TrainingImage, artifactURL); err != nil {
		return fmt.Errorf("Error registering model %s for the batch transform: %s", modelName, err)
	}

	_, err = p.Transform(modelName)
	return err
}

// Enqueue pushes a train request and a transform request to the queue instead of driving the
// platform directly, leaving the work to the pipeline workers
func (p *Pipeline) Enqueue(producer common.Producer) error {
	trainReq := common.NewTrainRequest()
	trainReq.DatasetKey = p.trainKey()
	trainReq.TargetColumn = p.conf.TargetColumn
	trainReq.TrainingImage = p.conf.TrainingImage
	trainReq.RoleARN = p.conf.RoleARN
	trainReq.InstanceType = p.conf.InstanceType
	trainReq.InstanceCount = p.conf.InstanceCount
	trainReq.Hyperparameters = p.conf.Hyperparameters()
	trainReq.OutputPrefix = p.outputPrefix()

	run := common.NewRun(common.TypeTrainRequest)
	run.ID = trainReq.ID
	if err := p.experiment.PostRun(run); err != nil {
		return fmt.Errorf("Error registering train run %s: %s", run.ID, err)
	}

	body, err := json.Marshal(trainReq)
	if err != nil {
		return fmt.Errorf("Error JSON-marshaling train request %s: %s", trainReq.ID, err)
	}
	if err = producer.Push(common.TrainTopic, body); err != nil {
		return fmt.Errorf("Error pushing train request %s: %s", trainReq.ID, err)
	}
	log.Printf("[INFO] Train request %s pushed to topic %s", trainReq.ID, common.TrainTopic)

	transformReq := common.NewTransformRequest()
	transformReq.ModelName = fmt.Sprintf("tabular-model-%s", trainReq.ID)
	transformReq.InputKey = p.testKey()
	transformReq.OutputPrefix = p.transformOutputPrefix()
	transformReq.LabelsKey = p.labelsKey()
	transformReq.InstanceType = p.conf.InstanceType
	transformReq.InstanceCount = p.conf.InstanceCount

	run = common.NewRun(common.TypeTransformRequest)
	run.ID = transformReq.ID
	if err = p.experiment.PostRun(run); err != nil {
		return fmt.Errorf("Error registering transform run %s: %s", run.ID, err)
	}

	body, err = json.Marshal(transformReq)
	if err != nil {
		return fmt.Errorf("Error JSON-marshaling transform request %s: %s", transformReq.ID, err)
	}
	if err = producer.Push(common.TransformTopic, body); err != nil {
		return fmt.Errorf("Error pushing transform request %s: %s", transformReq.ID, err)
	}
	log.Printf("[INFO] Transform request %s pushed to topic %s", transformReq.ID, common.TransformTopic)

	return nil
}

// fetchHoldout reads the held-out feature rows and their labels back from the blob store
func (p *Pipeline) fetchHoldout() (features *common.Table, labels []string, err error) {
	blob, err := p.store.Get(p.testKey())
	if err != nil {
		return nil, nil, fmt.Errorf("Error pulling test features %s from blob store: %s", p.testKey(), err)
	}
	features, err = common.LoadCSV(blob, false)
	blob.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("Error parsing test features %s: %s", p.testKey(), err)
	}

	blob, err = p.store.Get(p.labelsKey())
	if err != nil {
		return nil, nil, fmt.Errorf("Error pulling labels %s from blob store: %s", p.labelsKey(), err)
	}
	labelTable, err := common.LoadCSV(blob, false)
	blob.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("Error parsing labels %s: %s", p.labelsKey(), err)
	}

	for _, row := range labelTable.Rows {
		if len(row) > 0 {
			labels = append(labels, row[0])
		}
	}
	return features, labels, nil
}
