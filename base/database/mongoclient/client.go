package mongoclient

import (
	"context"
	"crypto/tls"
	"runtime"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/atelierhq/marketapi/base/log"
)

const (
	socketTimeout = 60 * time.Second
)

// Client wraps mongo.Client together with the database it serves.
type Client struct {
	DbName string
	*mongo.Client
}

// MustConnectMongoClient returns a connected client or panics.
func MustConnectMongoClient(uri, authDBName, dbName string, ssl, setSafe bool, poolSizeMultiplier float64) *Client {
	cli, err := ConnectMongoClient(uri, authDBName, dbName, ssl, setSafe, poolSizeMultiplier)
	if err != nil {
		log.Log().WithFields(log.Fields{"mongoURI": uri, "err": err}).Panic("fail to dial Mongo")
	}
	return cli
}

// ConnectMongoClient dials mongo and verifies dbName is reachable before
// returning the client.
func ConnectMongoClient(uri, authDBName, dbName string, ssl, setSafe bool, poolSizeMultiplier float64) (*Client, error) {
	ctx := context.Background()

	cs, err := connstring.Parse(uri)
	if err != nil {
		log.Log().WithFields(log.Fields{
			"mongoURI": uri,
			"dbName":   dbName,
			"err":      err,
		}).Error("fail to parse connstring")
		return nil, err
	}

	opts := options.Client().ApplyURI(uri).SetSocketTimeout(socketTimeout)

	// credentials in the uri may omit the auth source, fall back to
	// authDBName
	if cs.Username != "" && cs.AuthSource == "" {
		opts.SetAuth(options.Credential{
			AuthMechanism:           cs.AuthMechanism,
			AuthMechanismProperties: cs.AuthMechanismProperties,
			Username:                cs.Username,
			Password:                cs.Password,
			PasswordSet:             cs.PasswordSet,
			AuthSource:              authDBName,
		})
	}

	// the driver keeps one pool per host, split the budget so the total
	// stays at cpu * multiplier
	poolSize := int(float64(runtime.NumCPU()) * poolSizeMultiplier)
	poolSize = (poolSize + len(cs.Hosts) - 1) / len(cs.Hosts)
	opts.SetMinPoolSize(uint64(poolSize / 4))
	opts.SetMaxPoolSize(uint64(poolSize))
	log.Log().WithField("poolSize", poolSize).Info("mongo driver pool size")

	if ssl {
		opts.SetTLSConfig(&tls.Config{})
	}

	if setSafe {
		// writes wait for a majority of the replica set
		opts.SetWriteConcern(writeconcern.New(writeconcern.WMajority()))
	}
	opts.SetRetryWrites(true)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		log.Log().WithFields(log.Fields{
			"mongoHosts": cs.Hosts,
			"dbName":     dbName,
			"err":        err,
		}).Error("fail to connect mongo db")
		return nil, err
	}

	// a bad database name only surfaces on first use, check it here
	if _, err := client.Database(dbName).ListCollectionNames(ctx, bson.D{}); err != nil {
		log.Log().WithFields(log.Fields{
			"mongoHosts": cs.Hosts,
			"dbName":     dbName,
			"err":        err,
		}).Error("fail to test mongo db")
		return nil, err
	}

	log.Log().WithFields(log.Fields{
		"mongoHosts": cs.Hosts,
		"db":         dbName,
	}).Info("mongo connected")

	return &Client{
		Client: client,
		DbName: dbName,
	}, nil
}
