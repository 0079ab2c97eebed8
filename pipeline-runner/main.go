package main

import (
	"fmt"
	"log"

	"github.com/dinaAbdelrahman/tabular-pipeline/client"
	"github.com/dinaAbdelrahman/tabular-pipeline/common"
)

func main() {
	conf := NewRunnerConfig()

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

	// Platform clients, or their mocks if no region was given
	var trainer client.Trainer
	var deployer client.Deployer
	var predictor client.Predictor
	var transformer client.Transformer
	if conf.AWSRegion == "" || conf.AWSRegion == "fake" {
		log.Println("[INFO] Using the platform Mocks (no -aws-region given)")
		trainer = client.NewTrainerMock()
		deployer = client.NewDeployerMock()
		predictor = client.NewPredictorMock(common.DefaultMajorityLabel)
		transformer = client.NewTransformerMock(store, common.DefaultMajorityLabel)
	} else {
		trainer = client.NewSageMakerTrainer(conf.AWSRegion, conf.AWSBucket)
		deployer = client.NewSageMakerDeployer(conf.AWSRegion, conf.RoleARN)
		predictor = client.NewSageMakerPredictor(conf.AWSRegion)
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

	pipeline := NewPipeline(conf, store, trainer, deployer, predictor, transformer, experiment)

	switch conf.Step {
	case StepPrepare:
		err = pipeline.Prepare()
	case StepTrain:
		_, err = pipeline.Train()
	case StepPredict:
		var artifactURL string
		artifactURL, err = pipeline.Train()
		if err == nil {
			_, err = pipeline.Predict(artifactURL)
		}
	case StepTransform:
		var artifactURL string
		artifactURL, err = pipeline.Train()
		if err == nil {
			modelName := fmt.Sprintf("tabular-model-%s", common.NewTransformRequest().ID)
			err = pipeline.deployer.CreateModel(modelName, conf.TrainingImage, artifactURL)
			if err == nil {
				_, err = pipeline.Transform(modelName)
			}
		}
	case StepAll:
		err = pipeline.All()
	case StepEnqueue:
		var producer common.Producer
		producer, err = common.NewNSQProducer(conf.NsqdHost, conf.NsqdPort)
		if err != nil {
			log.Panicf("[FATAL ERROR] Impossible to reach NSQd on %s:%d: %s", conf.NsqdHost, conf.NsqdPort, err)
		}
		defer producer.Stop()
		err = pipeline.Enqueue(producer)
	default:
		log.Panicf("[FATAL ERROR] Unknown pipeline step \"%s\"", conf.Step)
	}

	if err != nil {
		log.Panicf("[FATAL ERROR] Pipeline step \"%s\" failed: %s", conf.Step, err)
	}
	log.Printf("[INFO] Pipeline step \"%s\" completed with success", conf.Step)
}
