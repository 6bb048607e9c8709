// Package database wraps GORM over SQLite with connection retry, pooling,
// transactions and a logger adapter.
//
//	db, err := database.Open(ctx, database.Config{Path: "data/diarizer.db"}, log)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	err = db.WithTransaction(ctx, func(tx *gorm.DB) error {
//	    return tx.Create(&row).Error
//	})
//
// Path ":memory:" opens a private in-memory database on a single pooled
// connection, which is what the store tests use.
package database
