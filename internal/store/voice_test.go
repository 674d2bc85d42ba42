package store

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestOpenVoiceSessionClosesDanglingSession(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := databaseName + ".voice_sessions"

	mt.Run("dangling session is finalized before the new insert", func(mt *mtest.T) {
		st := &Store{client: mt.Client, db: mt.Client.Database(databaseName)}

		stale := bson.D{
			{Key: "_id", Value: primitive.NewObjectID()},
			{Key: "started_at", Value: primitive.NewDateTimeFromTime(time.Now().UTC().Add(-10 * time.Minute))},
		}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, stale),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
		)

		if err := st.OpenVoiceSession(context.Background(), "g1", "u1", "c1"); err != nil {
			mt.Fatalf("unexpected error: %v", err)
		}

		events := mt.GetAllStartedEvents()
		if len(events) != 3 {
			mt.Fatalf("expected find, update, insert, got %d commands", len(events))
		}
		if events[0].CommandName != "find" || events[1].CommandName != "update" || events[2].CommandName != "insert" {
			mt.Fatalf("unexpected command order: %s, %s, %s",
				events[0].CommandName, events[1].CommandName, events[2].CommandName)
		}

		filter := events[0].Command.Lookup("filter").Document()
		if filter.Lookup("guild_id").StringValue() != "g1" || filter.Lookup("user_id").StringValue() != "u1" {
			mt.Fatalf("unexpected open-session filter %v", filter)
		}
		if _, err := filter.LookupErr("ended_at"); err != nil {
			mt.Fatalf("open-session filter must match on ended_at: %v", filter)
		}

		set := events[1].Command.Lookup("updates").Array().Index(0).Value().Document().
			Lookup("u").Document().Lookup("$set").Document()
		if _, err := set.LookupErr("ended_at"); err != nil {
			mt.Fatalf("stale session close must set ended_at: %v", set)
		}
		duration, ok := set.Lookup("duration_seconds").Int64OK()
		if !ok {
			mt.Fatalf("stale session close must set duration_seconds: %v", set)
		}
		if duration < 0 {
			mt.Fatalf("duration must be non-negative, got %d", duration)
		}
	})

	mt.Run("clean open skips the close path", func(mt *mtest.T) {
		st := &Store{client: mt.Client, db: mt.Client.Database(databaseName)}

		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
			mtest.CreateSuccessResponse(),
		)

		if err := st.OpenVoiceSession(context.Background(), "g1", "u1", "c1"); err != nil {
			mt.Fatalf("unexpected error: %v", err)
		}

		events := mt.GetAllStartedEvents()
		if len(events) != 2 {
			mt.Fatalf("expected find then insert, got %d commands", len(events))
		}
		if events[0].CommandName != "find" || events[1].CommandName != "insert" {
			mt.Fatalf("unexpected command order: %s, %s", events[0].CommandName, events[1].CommandName)
		}
	})

	mt.Run("close with no open session is a no-op", func(mt *mtest.T) {
		st := &Store{client: mt.Client, db: mt.Client.Database(databaseName)}

		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
		)

		if err := st.CloseVoiceSession(context.Background(), "g1", "u1"); err != nil {
			mt.Fatalf("unexpected error: %v", err)
		}

		events := mt.GetAllStartedEvents()
		if len(events) != 1 {
			mt.Fatalf("expected a single find, got %d commands", len(events))
		}
	})
}

func TestClockSkewClampsDuration(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := databaseName + ".voice_sessions"

	mt.Run("future started_at yields zero duration", func(mt *mtest.T) {
		st := &Store{client: mt.Client, db: mt.Client.Database(databaseName)}

		stale := bson.D{
			{Key: "_id", Value: primitive.NewObjectID()},
			{Key: "started_at", Value: primitive.NewDateTimeFromTime(time.Now().UTC().Add(time.Hour))},
		}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, stale),
			mtest.CreateSuccessResponse(),
		)

		if err := st.CloseVoiceSession(context.Background(), "g1", "u1"); err != nil {
			mt.Fatalf("unexpected error: %v", err)
		}

		events := mt.GetAllStartedEvents()
		set := events[1].Command.Lookup("updates").Array().Index(0).Value().Document().
			Lookup("u").Document().Lookup("$set").Document()
		if duration, _ := set.Lookup("duration_seconds").Int64OK(); duration != 0 {
			mt.Fatalf("expected clamped duration 0, got %d", duration)
		}
	})
}
