package main

import (
	"github.com/spf13/cobra"

	"Atelier/internal/config"
	"Atelier/internal/engine"
	"Atelier/internal/ledger"
	"Atelier/internal/marketplace"
)

type mintResult struct {
	ID     uint64         `json:"id"`
	Events []ledger.Event `json:"events"`
}

type sale struct {
	Settlement *marketplace.Settlement `json:"settlement"`
	Events     []ledger.Event          `json:"events"`
}

func (a *app) mintCmd() *cobra.Command {
	var (
		royalty uint32
		creator string
	)

	cmd := a.command(&cobra.Command{
		Use:   "mint <fingerprint>",
		Short: "Mint a collectible bound to a metadata fingerprint",
		Args:  cobra.ExactArgs(1),
	}, func(cmd *cobra.Command, args []string) error {
		who, err := parseAddress("creator", creator)
		if err != nil {
			return err
		}

		id, receipt, err := a.engine.CreateCollectible(cmd.Context(), []byte(args[0]), royalty, who)
		if err != nil {
			return result(a.out, nil, err)
		}

		return result(a.out, mintResult{ID: id, Events: receipt.Events}, nil)
	})

	cmd.Flags().Uint32Var(&royalty, "royalty", 0, "royalty percentage owed to the creator on resale (0-40)")
	cmd.Flags().StringVar(&creator, "creator", "", "creator identity (64 hex characters)")

	return cmd
}

func (a *app) mintedCmd() *cobra.Command {
	return a.command(&cobra.Command{
		Use:   "minted <fingerprint>",
		Short: "Report whether a fingerprint was already minted",
		Args:  cobra.ExactArgs(1),
	}, func(cmd *cobra.Command, args []string) error {
		minted, err := a.engine.HasBeenMinted([]byte(args[0]))

		return result(a.out, map[string]bool{"minted": minted}, err)
	})
}

func (a *app) itemCmd() *cobra.Command {
	return a.command(&cobra.Command{
		Use:   "item <id>",
		Short: "Show an item",
		Args:  cobra.ExactArgs(1),
	}, func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		it, err := a.engine.Item(id)

		return result(a.out, it, err)
	})
}

func (a *app) countCmd() *cobra.Command {
	return a.command(&cobra.Command{
		Use:   "count",
		Short: "Show the number of minted items",
		Args:  cobra.NoArgs,
	}, func(cmd *cobra.Command, args []string) error {
		n, err := a.engine.ItemsLength()

		return result(a.out, map[string]uint64{"items": n}, err)
	})
}

func (a *app) ownedCmd() *cobra.Command {
	return a.command(&cobra.Command{
		Use:   "owned <address>",
		Short: "List the items held by an identity",
		Args:  cobra.ExactArgs(1),
	}, func(cmd *cobra.Command, args []string) error {
		who, err := parseAddress("address", args[0])
		if err != nil {
			return err
		}

		ids, err := a.engine.ItemsOf(who)
		if ids == nil {
			ids = []uint64{}
		}

		return result(a.out, map[string][]uint64{"items": ids}, err)
	})
}

func (a *app) listCmd() *cobra.Command {
	var (
		seller string
		price  uint64
	)

	cmd := a.command(&cobra.Command{
		Use:   "list <id>",
		Short: "Offer an owned item for sale",
		Args:  cobra.ExactArgs(1),
	}, func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		who, err := parseAddress("seller", seller)
		if err != nil {
			return err
		}

		receipt, err := a.engine.List(cmd.Context(), id, who, price)

		return result(a.out, receipt, err)
	})

	cmd.Flags().StringVar(&seller, "seller", "", "seller identity (must own the item)")
	cmd.Flags().Uint64Var(&price, "price", 0, "asking price in the smallest currency unit")

	return cmd
}

func (a *app) delistCmd() *cobra.Command {
	var caller string

	cmd := a.command(&cobra.Command{
		Use:   "delist <id>",
		Short: "Withdraw a listing",
		Args:  cobra.ExactArgs(1),
	}, func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		who, err := parseAddress("caller", caller)
		if err != nil {
			return err
		}

		receipt, err := a.engine.Delist(cmd.Context(), id, who)

		return result(a.out, receipt, err)
	})

	cmd.Flags().StringVar(&caller, "caller", "", "identity of the listing's seller")

	return cmd
}

func (a *app) buyCmd() *cobra.Command {
	var (
		buyer   string
		payment uint64
	)

	cmd := a.command(&cobra.Command{
		Use:   "buy <id>",
		Short: "Buy a listed item",
		Args:  cobra.ExactArgs(1),
	}, func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		who, err := parseAddress("buyer", buyer)
		if err != nil {
			return err
		}

		s, receipt, err := a.engine.Buy(cmd.Context(), id, who, payment)
		if err != nil {
			return result(a.out, nil, err)
		}

		return result(a.out, sale{Settlement: s, Events: receipt.Events}, nil)
	})

	cmd.Flags().StringVar(&buyer, "buyer", "", "buyer identity")
	cmd.Flags().Uint64Var(&payment, "payment", 0, "amount paid in the smallest currency unit")

	return cmd
}

func (a *app) listingCmd() *cobra.Command {
	return a.command(&cobra.Command{
		Use:   "listing <id>",
		Short: "Show the active listing of an item",
		Args:  cobra.ExactArgs(1),
	}, func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		l, err := a.engine.Listing(id)

		return result(a.out, l, err)
	})
}

func (a *app) listingsCmd() *cobra.Command {
	return a.command(&cobra.Command{
		Use:   "listings",
		Short: "Show every active listing",
		Args:  cobra.NoArgs,
	}, func(cmd *cobra.Command, args []string) error {
		ls, err := a.engine.Listings()
		if ls == nil {
			ls = []*marketplace.Listing{}
		}

		return result(a.out, ls, err)
	})
}

func (a *app) creditsCmd() *cobra.Command {
	return a.command(&cobra.Command{
		Use:   "credits <address>",
		Short: "Show the total settlements have paid to an identity",
		Args:  cobra.ExactArgs(1),
	}, func(cmd *cobra.Command, args []string) error {
		who, err := parseAddress("address", args[0])
		if err != nil {
			return err
		}

		n, err := a.engine.Credits(who)

		return result(a.out, map[string]uint64{"credits": n}, err)
	})
}

func (a *app) eventsCmd() *cobra.Command {
	var (
		from  uint64
		limit int
	)

	cmd := a.command(&cobra.Command{
		Use:   "events",
		Short: "Print the event log",
		Args:  cobra.NoArgs,
	}, func(cmd *cobra.Command, args []string) error {
		events, err := a.engine.Events(from, limit)
		if events == nil {
			events = []ledger.Event{}
		}

		return result(a.out, events, err)
	})

	cmd.Flags().Uint64Var(&from, "from", 1, "first sequence number")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of events (0 = all)")

	return cmd
}

func (a *app) digestCmd() *cobra.Command {
	return a.command(&cobra.Command{
		Use:   "digest",
		Short: "Print a checksum of the whole ledger state",
		Args:  cobra.NoArgs,
	}, func(cmd *cobra.Command, args []string) error {
		d, err := a.engine.Digest()

		return result(a.out, map[string]engine.StateDigest{"digest": d}, err)
	})
}

func (a *app) infoCmd() *cobra.Command {
	return a.command(&cobra.Command{
		Use:   "info",
		Short: "Show the collection identity and ledger counters",
		Args:  cobra.NoArgs,
	}, func(cmd *cobra.Command, args []string) error {
		info, err := a.engine.Info()

		return result(a.out, info, err)
	})
}

// initCmd writes a default config file. It never opens the store.
func (a *app) initCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "atelier.yaml"
			if len(args) == 1 {
				path = args[0]
			}

			if err := config.Write(path, config.Defaults(), force); err != nil {
				return err
			}

			return writeJSON(a.out, map[string]string{"config": path})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	return cmd
}
