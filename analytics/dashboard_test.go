package analytics

import (
	"testing"

	"storefront/db"
	"storefront/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func stageNames(t *testing.T, stages []bson.D) []string {
	t.Helper()
	names := make([]string, 0, len(stages))
	for _, s := range stages {
		require.Len(t, s, 1)
		names = append(names, s[0].Key)
	}
	return names
}

func TestRevenueCountsOnlyCompletedPayments(t *testing.T) {
	p := revenuePipeline()
	require.Len(t, p, 2)
	match := p[0][0].Value.(bson.M)
	assert.Equal(t, models.PaymentStatusCompleted, match["paymentStatus"])
}

func TestTopProductsPipeline(t *testing.T) {
	p := topProductsPipeline(5)
	assert.Equal(t,
		[]string{"$match", "$unwind", "$group", "$sort", "$limit", "$lookup", "$unwind", "$project"},
		stageNames(t, p))

	assert.Equal(t, 5, p[4][0].Value)
	lookup := p[5][0].Value.(bson.M)
	assert.Equal(t, db.ProductsCollectionName, lookup["from"])

	sort := p[3][0].Value.(bson.D)
	assert.Equal(t, "sold", sort[0].Key)
	assert.Equal(t, -1, sort[0].Value)
}

func TestRecentOrdersPipeline(t *testing.T) {
	p := recentOrdersPipeline(5)
	assert.Equal(t, []string{"$sort", "$limit", "$project"}, stageNames(t, p))
	project := p[2][0].Value.(bson.M)
	assert.Equal(t, "$shippingAddress.fullName", project["customerName"])
	assert.NotContains(t, project, "items")
}
