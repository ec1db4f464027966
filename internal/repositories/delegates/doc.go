// Package delegates provides the SQLite persistence layer for delegates.
//
// Rows are never removed: deletion is a soft-delete flag that is synchronized
// like any other column. The uuid column is nullable so that rows created
// before their first sync can exist without an identifier; one is assigned
// when the row is first pushed.
//
//	repo := delegates.NewSQLiteRepository(tx)
//	all, _ := repo.List(ctx)
//	_ = repo.Insert(ctx, &models.Delegate{UUID: id, Name: "Ana"})
package delegates
