package test

import (
	"context"
	"fmt"
	"time"

	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tidepool-org/blip/store"
	"github.com/tidepool-org/blip/test"
)

const (
	mongoTestHost = "mongodb://127.0.0.1:27017"
	mongoTimeout  = time.Second * 5
)

var database *mongo.Database

func SetupDatabase() {
	client, err := store.Connect(mongoTestHost)
	Expect(err).ToNot(HaveOccurred())

	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	Expect(client.Ping(ctx, nil)).To(Succeed())

	databaseName := fmt.Sprintf("blip_test_%s_%d", test.Faker.Lorem().Word(), ginkgo.GinkgoParallelProcess())
	database = client.Database(databaseName)
}

func TeardownDatabase() {
	Expect(database).ToNot(BeNil())
	Expect(database.Drop(context.Background())).To(Succeed())

	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	Expect(database.Client().Disconnect(ctx)).To(Succeed())
	database = nil
}

func GetTestDatabase() *mongo.Database {
	Expect(database).ToNot(BeNil())
	return database
}
