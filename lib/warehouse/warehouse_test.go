package warehouse

import (
	"context"
	"testing"
	"time"

	"github.com/jakebrehm/osrs-economy/lib/testutil"

	"github.com/stretchr/testify/require"
)

// mirrors the production tables; sqlite stands in for the real warehouse
const testSchema = `
CREATE TABLE items (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL,
	is_members BOOLEAN,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE prices (
	item_id INTEGER NOT NULL,
	timestamp TEXT NOT NULL,
	price INTEGER NOT NULL,
	volume INTEGER NOT NULL
);
`

func TestSink(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "lib/warehouse",
		DbSchema: testSchema,
	})
	defer cleanup()
	sink := NewSink(setup.DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	members := true
	{
		err := sink.InsertItems(ctx, "items", []ItemRow{
			{ID: 2, Name: "Cannonball", Description: "Ammo.", IsMembers: &members, UpdatedAt: time.Now()},
			{ID: 4151, Name: "Abyssal whip", Description: "A weapon.", IsMembers: nil, UpdatedAt: time.Now()},
		})
		require.NoError(t, err)

		var count int
		err = setup.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM items").Scan(&count)
		require.NoError(t, err)
		require.Equal(t, 2, count)

		var isMembers *bool
		err = setup.DB.QueryRowContext(ctx, "SELECT is_members FROM items WHERE id = 4151").Scan(&isMembers)
		require.NoError(t, err)
		require.Nil(t, isMembers)
	}
	{
		// truncate-then-insert is the idempotent full reload
		err := sink.Truncate(ctx, "items")
		require.NoError(t, err)

		var count int
		err = setup.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM items").Scan(&count)
		require.NoError(t, err)
		require.Equal(t, 0, count)
	}
	{
		err := sink.InsertPrices(ctx, "prices", []PriceRow{
			{ItemID: 2, Timestamp: "2024-06-01T00:00:00.000Z", Price: 150, Volume: 1000},
			{ItemID: 4151, Timestamp: "2024-06-01T00:00:00.000Z", Price: 1_600_000, Volume: 40},
		})
		require.NoError(t, err)

		err = sink.InsertPrices(ctx, "prices", []PriceRow{
			{ItemID: 2, Timestamp: "2024-06-02T00:00:00.000Z", Price: 155, Volume: 900},
		})
		require.NoError(t, err)

		// price history accumulates, nothing is truncated
		var count int
		err = setup.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM prices").Scan(&count)
		require.NoError(t, err)
		require.Equal(t, 3, count)
	}
}
