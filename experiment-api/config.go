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

import "flag"

// ExperimentConfig holds the configuration variables for the experiment API
type ExperimentConfig struct {
	// API Server settings
	Hostname string
	Port     int
	CertFile string
	KeyFile  string

	// Authentification
	APIUser     string
	APIPassword string

	// Database configuration
	DBHost string
	DBPort int
	DBUser string
	DBPass string
	DBName string

	// Database migration flags
	DBMigrationsDir string
	DBRollback      bool

	// local (disk) blob store configuration
	DataDir string
	// S3 config
	AWSBucket string
	AWSRegion string
}

// TLSOn returns true if TLS credentials have been provided. The API will then
// serve requests over TLS.
func (c *ExperimentConfig) TLSOn() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

// NewExperimentConfig computes the configuration object parsing CLI flags
func NewExperimentConfig() (conf *ExperimentConfig) {
	var (
		hostname string
		port     int
		certFile string
		keyFile  string

		apiUser     string
		apiPassword string

		dbHost string
		dbPort int
		dbUser string
		dbPass string
		dbName string

		dbMigrationsDir string
		dbRollback      bool

		dataDir   string
		awsBucket string
		awsRegion string
	)

	// CLI Flags
	flag.StringVar(&hostname, "host", "0.0.0.0", "The hostname our server will be listening on")
	flag.IntVar(&port, "port", 8000, "The port our experiment API will be listening on")
	flag.StringVar(&certFile, "cert", "", "The TLS certs to serve to clients (leave blank for no TLS)")
	flag.StringVar(&keyFile, "key", "", "The TLS key used to encrypt connection (leave blank for no TLS)")

	flag.StringVar(&apiUser, "user", "u", "The username for Basic Authentification")
	flag.StringVar(&apiPassword, "password", "p", "The password for Basic Authentification")

	flag.StringVar(&dbHost, "db-host", "", "The hostname of the postgres database (leave blank to use the Model Mock)")
	flag.IntVar(&dbPort, "db-port", 5432, "The database port")
	flag.StringVar(&dbUser, "db-user", "u", "The database user")
	flag.StringVar(&dbPass, "db-pass", "p", "The database password")
	flag.StringVar(&dbName, "db-name", "experiment", "The database name (default: experiment)")

	flag.StringVar(&dbMigrationsDir, "db-migrations-dir", "./migrations", "The database migrations directory (default: ./migrations)")
	flag.BoolVar(&dbRollback, "db-rollback", false, "if true, rolls back the last migration and exits")

	flag.StringVar(&dataDir, "data-dir", "/data", "The directory artifacts are stored under when using the local blob store")
	flag.StringVar(&awsBucket, "aws-bucket", "", "The AWS bucket to store artifacts in (leave blank to store on disk)")
	flag.StringVar(&awsRegion, "aws-region", "", "The AWS region the bucket lives in (leave blank to store on disk)")

	flag.Parse()

	// Let's create the config structure
	conf = &ExperimentConfig{
		Hostname: hostname,
		Port:     port,
		CertFile: certFile,
		KeyFile:  keyFile,

		APIUser:     apiUser,
		APIPassword: apiPassword,

		DBHost: dbHost,
		DBPort: dbPort,
		DBUser: dbUser,
		DBPass: dbPass,
		DBName: dbName,

		DBMigrationsDir: dbMigrationsDir,
		DBRollback:      dbRollback,

		DataDir:   dataDir,
		AWSBucket: awsBucket,
		AWSRegion: awsRegion,
	}
	return
}
