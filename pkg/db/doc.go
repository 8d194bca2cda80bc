// Package db connects to PostgreSQL for use as a merge record source.
//
//	pool, err := db.Connect(ctx, db.Config{ConnectionString: url, RetryAttempts: 3, RetryInterval: time.Second})
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	err = db.ReadOnly(ctx, pool, func(tx pgx.Tx) error {
//		rows, err := tx.Query(ctx, "SELECT email AS to, name FROM attendees")
//		...
//	})
package db
