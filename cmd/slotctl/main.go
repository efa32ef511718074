package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/adslot-experiment/adslot/internal/slotclient"
)

const usage = `Usage: slotctl [-url URL] <command> [args]

Commands:
  price                              show the current take-over quote
  slot                               show the full slot state
  set <caller> <payment> <title> [body]
                                     take over the slot
  reclaim <caller>                   reclaim the slot (admin only)
  balance <address>                  show a ledger balance
  faucet <address> <amount>          credit an account (demo ledgers)
`

func main() {
	url := flag.String("url", "http://localhost:8080", "Slot service URL")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if envURL := os.Getenv("SLOTD_URL"); envURL != "" && *url == "http://localhost:8080" {
		*url = envURL
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	client := slotclient.New(*url, slotclient.Options{Timeout: 10 * time.Second})

	switch args[0] {
	case "price":
		quote, err := client.Price()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("price=%s tax=%s now=%d\n", quote.Price, quote.Tax, quote.Now)

	case "slot":
		view, err := client.Slot()
		if err != nil {
			log.Fatal(err)
		}
		if !view.Occupied {
			fmt.Println("slot is free")
		} else {
			fmt.Printf("holder=%s stake=%s postedAt=%d\n", view.Holder.Hex(), view.Stake, view.PostedAt)
			fmt.Printf("content: %q / %q\n", view.Content.Title, view.Content.Body)
		}
		fmt.Printf("price=%s tax=%s\n", view.Quote.Price, view.Quote.Tax)

	case "set":
		if len(args) < 4 {
			flag.Usage()
			os.Exit(2)
		}
		body := ""
		if len(args) > 4 {
			body = args[4]
		}
		receipt, err := client.Set(args[1], args[2], args[3], body)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("took over slot: receipt=%s price=%s tax=%s payout=%s newStake=%s\n",
			receipt.ID, receipt.Price, receipt.Tax, receipt.Payout, receipt.NewStake)

	case "reclaim":
		if len(args) < 2 {
			flag.Usage()
			os.Exit(2)
		}
		receipt, err := client.Reclaim(args[1])
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("reclaimed: receipt=%s withdrawn=%s\n", receipt.ID, receipt.Payout)

	case "balance":
		if len(args) < 2 {
			flag.Usage()
			os.Exit(2)
		}
		resp, err := client.Balance(args[1])
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%s: %s\n", resp.Address.Hex(), resp.Balance)

	case "faucet":
		if len(args) < 3 {
			flag.Usage()
			os.Exit(2)
		}
		if err := client.Faucet(args[1], args[2]); err != nil {
			log.Fatal(err)
		}
		fmt.Println("credited")

	default:
		flag.Usage()
		os.Exit(2)
	}
}
