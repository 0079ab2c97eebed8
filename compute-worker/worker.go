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
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dinaAbdelrahman/tabular-pipeline/client"
	"github.com/dinaAbdelrahman/tabular-pipeline/common"
)

// Worker pulls pipeline requests off the queue and drives them to completion on the managed
// platform, reporting every status transition to the experiment API.
type Worker struct {
	// Platform poll configuration
	pollInterval time.Duration
	jobTimeout   time.Duration

	// Platform API clients
	trainer     client.Trainer
	transformer client.Transformer

	// Experiment tracking
	experiment client.Experiment

	// Blob store holding datasets, transform inputs/outputs and label files
	store common.BlobStore
}

// NewWorker creates a Worker instance
func NewWorker(trainer client.Trainer, transformer client.Transformer, experiment client.Experiment, store common.BlobStore, pollInterval, jobTimeout time.Duration) *Worker {
	return &Worker{
		pollInterval: pollInterval,
		jobTimeout:   jobTimeout,

		trainer:     trainer,
		transformer: transformer,
		experiment:  experiment,
		store:       store,
	}
}

// HandleTrain manages a queued training request (experiment status updates, etc...)
func (w *Worker) HandleTrain(message []byte) (err error) {

	// Unmarshal the train request
	var task common.TrainRequest

	err = json.NewDecoder(bytes.NewReader(message)).Decode(&task)
	if err != nil {
		return common.NewHandlerFatalError(fmt.Errorf("Error un-marshaling train request: %s -- Body: %s", err, message))
	}

	if err = task.Check(); err != nil {
		return common.NewHandlerFatalError(fmt.Errorf("Error in train request: %s -- Body: %s", err, message))
	}

	// Update its status to pending on the experiment API
	w.experiment.UpdateRunStatus(task.ID, common.RunStatusPending)

	err = w.TrainWorkflow(task)
	if err != nil {
		w.experiment.UpdateRunStatus(task.ID, common.RunStatusFailed)
		return fmt.Errorf("Error in TrainWorkflow: %s", err)
	}

	w.experiment.UpdateRunStatus(task.ID, common.RunStatusDone)
	return nil
}

// TrainWorkflow submits the training job and waits for its model artifact
func (w *Worker) TrainWorkflow(task common.TrainRequest) (err error) {
	jobName, err := w.trainer.CreateTrainingJob(&task)
	if err != nil {
		return fmt.Errorf("Error submitting training job for request %s: %s", task.ID, err)
	}

	artifactURL, err := w.trainer.WaitForTrainingJob(jobName, w.pollInterval, w.jobTimeout)
	if err != nil {
		return fmt.Errorf("Error waiting for training job %s: %s", jobName, err)
	}

	log.Printf("[INFO] Training job %s done, model artifact at %s", jobName, artifactURL)
	return nil
}

// HandleTransform manages a queued batch transform request
func (w *Worker) HandleTransform(message []byte) (err error) {

	// Unmarshal the transform request
	var task common.TransformRequest

	err = json.NewDecoder(bytes.NewReader(message)).Decode(&task)
	if err != nil {
		return common.NewHandlerFatalError(fmt.Errorf("Error un-marshaling transform request: %s -- Body: %s", err, message))
	}

	if err = task.Check(); err != nil {
		return common.NewHandlerFatalError(fmt.Errorf("Error in transform request: %s -- Body: %s", err, message))
	}

	w.experiment.UpdateRunStatus(task.ID, common.RunStatusPending)

	err = w.TransformWorkflow(task)
	if err != nil {
		w.experiment.UpdateRunStatus(task.ID, common.RunStatusFailed)
		return fmt.Errorf("Error in TransformWorkflow: %s", err)
	}

	return nil
}

// TransformWorkflow runs the batch transform job and, when the request carries a label file,
// tallies the predictions against it and posts the resulting perf report
func (w *Worker) TransformWorkflow(task common.TransformRequest) (err error) {
	jobName, err := w.transformer.CreateTransformJob(&task)
	if err != nil {
		return fmt.Errorf("Error submitting transform job for request %s: %s", task.ID, err)
	}

	err = w.transformer.WaitForTransformJob(jobName, w.pollInterval, w.jobTimeout)
	if err != nil {
		return fmt.Errorf("Error waiting for transform job %s: %s", jobName, err)
	}

	// No labels to tally against: the run is simply done
	if task.LabelsKey == "" {
		w.experiment.UpdateRunStatus(task.ID, common.RunStatusDone)
		log.Printf("[INFO] Transform job %s done, predictions under %s", jobName, task.OutputPrefix)
		return nil
	}

	predictions, err := w.transformer.FetchTransformOutput(task.OutputPrefix, w.store)
	if err != nil {
		return fmt.Errorf("Error fetching output of transform job %s: %s", jobName, err)
	}

	labels, err := w.fetchLabels(task.LabelsKey)
	if err != nil {
		return fmt.Errorf("Error fetching labels for transform job %s: %s", jobName, err)
	}

	perf, err := common.ComputePerf(predictions, labels)
	if err != nil {
		return fmt.Errorf("Error computing perf for transform job %s: %s", jobName, err)
	}

	err = w.experiment.PostRunPerf(task.ID, perf)
	if err != nil {
		return fmt.Errorf("Error posting perf of transform job %s: %s", jobName, err)
	}

	log.Printf("[INFO] Transform job %s done, accuracy: %f", jobName, perf.Accuracy)
	return nil
}

func (w *Worker) fetchLabels(labelsKey string) (labels []string, err error) {
	blob, err := w.store.Get(labelsKey)
	if err != nil {
		return nil, fmt.Errorf("Error pulling label file %s from blob store: %s", labelsKey, err)
	}
	defer blob.Close()

	scanner := bufio.NewScanner(blob)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			labels = append(labels, line)
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("Error reading label file %s: %s", labelsKey, err)
	}
	return labels, nil
}
