package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spendsense/spendsense/config"
	"github.com/spendsense/spendsense/internal/document"
	"github.com/spendsense/spendsense/internal/index"
	"github.com/spendsense/spendsense/internal/store"
	openai_provider "github.com/spendsense/spendsense/provider/openai"
)

func reindexCMD() *cobra.Command {
	var cfgPath string
	var train bool

	reindex := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the semantic index from the item table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			ctx := context.Background()

			st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
			if err != nil {
				return err
			}
			defer st.DB.Close()

			llm := openai_provider.NewClient(cfg.Providers.OpenAI)
			idx := index.NewManager(llm, index.Config{
				Dir:          cfg.Index.Dir,
				ChunkSize:    cfg.Index.ChunkSize,
				ChunkOverlap: cfg.Index.ChunkOverlap,
				BatchSize:    cfg.Index.BatchSize,
			}, nil)

			rows, err := st.ListItemRows(ctx)
			if err != nil {
				return fmt.Errorf("read items: %w", err)
			}
			meta, err := idx.Rebuild(ctx, document.SerializeAll(rows), train)
			if err != nil {
				return err
			}
			fmt.Printf("index rebuilt: %d documents, %d segments\n", meta.Documents, meta.Segments)
			return nil
		},
	}
	reindex.Flags().BoolVar(&train, "train", false, "chunk documents before embedding for a denser index")
	reindex.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config)")
	return reindex
}
