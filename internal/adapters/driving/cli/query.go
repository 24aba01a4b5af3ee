package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/esload/internal/core/domain"
)

var (
	queryBody     string
	queryType     string
	querySort     string
	queryAggs     string
	querySource   []string
	queryFrom     int
	querySize     int
	queryMax      int
	queryScroll   string
	queryScrollID string
	queryReturn   string
)

var queryCmd = &cobra.Command{
	Use:   "query [index]",
	Short: "Run a query and print the accumulated hits",
	Long: `Runs a query against an index. With --scroll the cursor is followed
until every hit, or --max hits, have been collected. Pass --scroll-id
to continue from a cursor returned by an earlier call.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&queryBody, "query", "q", "", "query DSL as JSON")
	queryCmd.Flags().StringVar(&queryType, "type", "", "document type")
	queryCmd.Flags().StringVar(&querySort, "sort", "", "sort as a JSON array")
	queryCmd.Flags().StringVar(&queryAggs, "aggs", "", "aggregations as JSON")
	queryCmd.Flags().StringSliceVar(&querySource, "source", nil, "source fields to return")
	queryCmd.Flags().IntVar(&queryFrom, "from", 0, "offset of the first hit (ignored when scrolling)")
	queryCmd.Flags().IntVarP(&querySize, "size", "n", 0, "page size")
	queryCmd.Flags().IntVar(&queryMax, "max", 0, "maximum hits across pages")
	queryCmd.Flags().StringVar(&queryScroll, "scroll", "", "cursor keep-alive, e.g. 1m")
	queryCmd.Flags().StringVar(&queryScrollID, "scroll-id", "", "continue an earlier cursor")
	queryCmd.Flags().StringVar(&queryReturn, "return", "", "hit projection: full or source")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	req, mode, err := buildQueryRequest(args)
	if err != nil {
		return err
	}

	res, err := queryService.SearchRaw(cmd.Context(), req, mode)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func buildQueryRequest(args []string) (domain.QueryRequest, domain.ReturnMode, error) {
	req := domain.QueryRequest{
		Type:     queryType,
		From:     queryFrom,
		Size:     querySize,
		Max:      queryMax,
		Scroll:   queryScroll,
		ScrollID: queryScrollID,
		Source:   querySource,
	}
	if len(args) > 0 {
		req.Index = args[0]
	}
	if req.Index == "" && req.ScrollID == "" {
		return req, "", fmt.Errorf("%w: an index or --scroll-id is required", domain.ErrInvalidInput)
	}

	if err := decodeFlag("query", queryBody, &req.Query); err != nil {
		return req, "", err
	}
	if err := decodeFlag("sort", querySort, &req.Sort); err != nil {
		return req, "", err
	}
	if err := decodeFlag("aggs", queryAggs, &req.Aggs); err != nil {
		return req, "", err
	}

	mode := domain.ReturnMode(queryReturn)
	if cfg != nil {
		q := cfg.Settings.Query
		if req.Scroll == "" {
			req.Scroll = q.Scroll
		}
		if req.Max == 0 {
			req.Max = q.Max
		}
		if mode == "" {
			mode = q.Return
		}
	}
	if mode == "" {
		mode = domain.ReturnFull
	}
	if !mode.IsValid() {
		return req, "", fmt.Errorf("%w: unknown return mode %q", domain.ErrInvalidInput, mode)
	}
	return req, mode, nil
}

func decodeFlag(name, value string, into any) error {
	if value == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(value), into); err != nil {
		return fmt.Errorf("%w: --%s: %w", domain.ErrInvalidInput, name, err)
	}
	return nil
}
