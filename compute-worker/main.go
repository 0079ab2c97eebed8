package main

import (
	"log"

	"github.com/dinaAbdelrahman/tabular-pipeline/client"
	"github.com/dinaAbdelrahman/tabular-pipeline/common"
)

func main() {
	conf := NewConsumerConfig()

	// Pick our blob store: in-memory fake, local disk or S3
	var store common.BlobStore
	var err error
	switch {
	case conf.AWSBucket == "fake" && conf.AWSRegion == "fake":
		store = common.NewFakeBlobStore()
	case conf.AWSBucket == "" || conf.AWSRegion == "":
		store, err = common.NewLocalBlobStore(conf.DataDir)
		if err != nil {
			log.Panicf("[FATAL ERROR] Impossible to create local blob store under %s: %s", conf.DataDir, err)
		}
	default:
		store, err = common.NewS3BlobStore(conf.AWSBucket, conf.AWSRegion)
		if err != nil {
			log.Panicf("[FATAL ERROR] Impossible to reach bucket %s in region %s: %s", conf.AWSBucket, conf.AWSRegion, err)
		}
	}

	// Platform clients: local Docker daemon, mocks or the real thing
	var trainer client.Trainer
	var transformer client.Transformer
	switch {
	case conf.LocalMode:
		log.Println("[INFO] Running training jobs on the local Docker daemon (-local-mode)")
		runtime, err := common.NewDockerRuntime(conf.JobTimeout)
		if err != nil {
			log.Panicf("[FATAL ERROR] Impossible to connect to the Docker daemon: %s", err)
		}
		trainer = client.NewLocalTrainer(runtime, store, conf.DataDir)
		transformer = client.NewTransformerMock(store, common.DefaultMajorityLabel)
	case conf.AWSRegion == "" || conf.AWSRegion == "fake":
		log.Println("[INFO] Using the platform Mocks (no -aws-region given)")
		trainer = client.NewTrainerMock()
		transformer = client.NewTransformerMock(store, common.DefaultMajorityLabel)
	default:
		trainer = client.NewSageMakerTrainer(conf.AWSRegion, conf.AWSBucket)
		transformer = client.NewSageMakerTransformer(conf.AWSRegion, conf.AWSBucket)
	}

	// Experiment tracking API, or its mock if no host was given
	var experiment client.Experiment
	if conf.ExperimentHost == "" {
		log.Println("[INFO] Using the Experiment API Mock (no -experiment-host given)")
		experiment = client.NewExperimentAPIMock()
	} else {
		experiment = &client.ExperimentAPI{
			Hostname: conf.ExperimentHost,
			Port:     conf.ExperimentPort,
			User:     conf.ExperimentUser,
			Password: conf.ExperimentPassword,
		}
	}

	worker := NewWorker(trainer, transformer, experiment, store, conf.PollInterval, conf.JobTimeout)

	// Let's hook with our consumer
	consumer := common.NewNSQConsumer(conf.NsqlookupdURLs, conf.Channel, conf.QueuePollingInterval)

	// Wire our message handlers
	consumer.AddHandler(common.TrainTopic, worker.HandleTrain, conf.TrainParallelism)
	consumer.AddHandler(common.TransformTopic, worker.HandleTransform, conf.TransformParallelism)

	// Let's connect to the queue for real and start pulling tasks
	consumer.ConsumeUntilKilled()

	log.Println("[INFO] Consumer has been gracefully stopped... Bye bye!")
}
