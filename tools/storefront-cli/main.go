package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/luxurytech30-cpu/meiza-font/clients"
	"github.com/luxurytech30-cpu/meiza-font/config"
	"github.com/luxurytech30-cpu/meiza-font/identity"
	"github.com/luxurytech30-cpu/meiza-font/logger"
	"github.com/luxurytech30-cpu/meiza-font/models"
	"github.com/luxurytech30-cpu/meiza-font/pricing"
	"github.com/luxurytech30-cpu/meiza-font/services"
)

const usage = `usage: storefront-cli [flags] <command> [args]

commands:
  products                          list the catalog
  featured [limit]                  list the featured products
  product <id>                      show one product with prices and stock
  cart                              show the cart
  add <product> <option> [qty]      add an option to the cart
  update <line> <qty>               set the quantity of a cart line
  remove <line>                     remove a cart line
  clear                             empty the cart
  checkout                          place a cash on delivery order (see -name, -email, ...)
  login <username> <password>       sign in and keep the token
  logout                            forget the token
  whoami                            show the signed in user
  profile <name> <username> [pass]  update the signed in user
  orders                            list your orders
  order <id>                        show one order
`

func main() {
	cfg := config.Load()

	var apiURL, idFile, lang string
	var form models.ShippingForm
	var payment string
	flag.StringVar(&apiURL, "api", cfg.StoreAPIURL, "store API base URL")
	flag.StringVar(&idFile, "identity", defaultIdentityFile(cfg), "file holding the token and guest id")
	flag.StringVar(&lang, "lang", "en", "display language (en or he)")
	flag.StringVar(&form.FullName, "name", "", "checkout: full name")
	flag.StringVar(&form.Email, "email", "", "checkout: email")
	flag.StringVar(&form.Phone, "phone", "", "checkout: phone")
	flag.StringVar(&form.City, "city", "", "checkout: city")
	flag.StringVar(&form.Street, "street", "", "checkout: street address")
	flag.StringVar(&form.Notes, "notes", "", "checkout: notes for the courier")
	flag.StringVar(&payment, "payment", string(models.PaymentCashOnDelivery), "checkout: payment method")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage); flag.PrintDefaults() }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	// Only problems reach the terminal unless LOG_LEVEL says otherwise.
	level := cfg.LogLevel
	if level == "" {
		level = "warn"
	}
	zapLog := logger.Initialize(cfg.Env, level)
	defer func() { _ = zapLog.Sync() }()

	store, err := identity.OpenFileStore(idFile)
	if err != nil {
		log.Fatalf("open identity file: %v", err)
	}
	client := clients.NewStoreClient(apiURL, &http.Client{Timeout: cfg.RequestTimeout}, store)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	app := &cli{
		client: client,
		store:  store,
		lang:   models.ParseLanguage(lang),
		cart:   services.NewCartStore(client, identity.Key(store, ""), nil, nil, zapLog),
	}
	app.checkout = services.NewCheckoutOrchestrator(client, app.cart, cfg.ShippingPrice, nil, nil, zapLog)

	if err := app.run(ctx, flag.Arg(0), flag.Args()[1:], form, models.PaymentMethod(payment)); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func defaultIdentityFile(cfg config.Config) string {
	if cfg.IdentityFile != "" {
		return cfg.IdentityFile
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".storefront-identity.json"
	}
	return dir + "/storefront/identity.json"
}

type cli struct {
	client   *clients.StoreClient
	store    *identity.FileStore
	lang     models.Language
	cart     *services.CartStore
	checkout *services.CheckoutOrchestrator
}

func (a *cli) tier() models.Tier {
	claims, err := identity.ParseClaims(a.store.Token(), "")
	if err != nil {
		return models.TierStandard
	}
	return models.TierFromRoles(claims.Roles)
}

func (a *cli) run(ctx context.Context, cmd string, args []string, form models.ShippingForm, method models.PaymentMethod) error {
	switch cmd {
	case "products":
		return a.products(ctx)
	case "product":
		if len(args) != 1 {
			return fmt.Errorf("product needs an id")
		}
		return a.product(ctx, args[0])
	case "cart":
		if err := a.cart.Refresh(ctx); err != nil {
			return err
		}
		return a.printCart()
	case "add":
		if len(args) < 2 {
			return fmt.Errorf("add needs a product id and an option id")
		}
		qty := 1
		if len(args) > 2 {
			n, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[2])
			}
			qty = n
		}
		return a.add(ctx, args[0], args[1], qty)
	case "update":
		if len(args) != 2 {
			return fmt.Errorf("update needs a line id and a quantity")
		}
		qty, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid quantity %q", args[1])
		}
		if err := a.cart.UpdateQuantity(ctx, args[0], qty); err != nil {
			return err
		}
		return a.printCart()
	case "remove":
		if len(args) != 1 {
			return fmt.Errorf("remove needs a line id")
		}
		if err := a.cart.RemoveLine(ctx, args[0]); err != nil {
			return err
		}
		return a.printCart()
	case "clear":
		if err := a.cart.Clear(ctx); err != nil {
			return err
		}
		return a.printCart()
	case "checkout":
		if err := a.cart.Refresh(ctx); err != nil {
			return err
		}
		order, err := a.checkout.Submit(ctx, form, method, a.lang)
		if err != nil {
			return err
		}
		return printJSON(order)
	case "login":
		if len(args) != 2 {
			return fmt.Errorf("login needs a username and a password")
		}
		return a.login(ctx, args[0], args[1])
	case "logout":
		if err := a.store.ClearToken(); err != nil {
			return err
		}
		if err := a.cart.IdentityChanged(ctx); err != nil {
			return err
		}
		return a.printCart()
	case "whoami":
		if a.store.Token() == "" {
			fmt.Println("guest", a.store.GuestID())
			return nil
		}
		user, err := a.client.Me(ctx)
		if err != nil {
			return err
		}
		return printJSON(map[string]interface{}{"user": user, "tier": user.Tier()})
	case "profile":
		if len(args) < 2 || len(args) > 3 {
			return fmt.Errorf("profile needs a name, a username and optionally a new password")
		}
		req := models.ProfileUpdate{Name: args[0], Username: args[1]}
		if len(args) == 3 {
			req.Password = args[2]
		}
		user, err := a.client.UpdateProfile(ctx, req)
		if err != nil {
			return err
		}
		return printJSON(map[string]interface{}{"user": user, "tier": user.Tier()})
	case "featured":
		limit := 0
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("bad limit %q", args[0])
			}
			limit = n
		}
		products, err := a.client.ListFeatured(ctx, limit)
		if err != nil {
			return err
		}
		return a.printProducts(ctx, products)
	case "orders":
		orders, err := a.client.ListMyOrders(ctx)
		if err != nil {
			return err
		}
		for _, o := range orders {
			created := ""
			if o.CreatedAt != nil {
				created = o.CreatedAt.Local().Format("2006-01-02 15:04")
			}
			total := ""
			if o.Totals != nil {
				total = o.Totals.GrandTotal.StringFixed(2)
			}
			fmt.Printf("%-24s  %-10s  %-16s  %3d items  %10s\n", o.ID, o.Status, created, o.ItemCount(), total)
		}
		return nil
	case "order":
		if len(args) != 1 {
			return fmt.Errorf("order needs an order id")
		}
		order, err := a.client.GetOrder(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(order)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *cli) products(ctx context.Context) error {
	products, err := a.client.ListProducts(ctx)
	if err != nil {
		return err
	}
	return a.printProducts(ctx, products)
}

func (a *cli) printProducts(ctx context.Context, products []models.Product) error {
	if err := a.cart.Refresh(ctx); err != nil {
		log.Printf("cart unavailable: %v", err)
	}
	inCart := pricing.NewCartQuantities(a.cart.Snapshot().Lines)
	tier := a.tier()
	now := time.Now()

	for i := range products {
		p := &products[i]
		opt := p.DefaultOption()
		if opt == nil {
			fmt.Printf("%-24s  %-32s  sold out\n", p.ID, p.Name.Resolve(a.lang))
			continue
		}
		quote := pricing.Quote(opt, tier, now)
		status := "left: " + inCart.Remaining(p.ID, opt).String()
		if inCart.Remaining(p.ID, opt).SoldOut() {
			status = "sold out"
		} else if quote.OnSale {
			status += " (sale)"
		}
		fmt.Printf("%-24s  %-32s  %10s  %s\n", p.ID, p.Name.Resolve(a.lang), quote.Unit.StringFixed(2), status)
	}
	return nil
}

func (a *cli) product(ctx context.Context, id string) error {
	p, err := a.client.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := a.cart.Refresh(ctx); err != nil {
		log.Printf("cart unavailable: %v", err)
	}
	inCart := pricing.NewCartQuantities(a.cart.Snapshot().Lines)
	tier := a.tier()
	now := time.Now()

	fmt.Println(p.Name.Resolve(a.lang))
	if desc := p.Desc.Resolve(a.lang); desc != "" {
		fmt.Println(desc)
	}
	for i := range p.Options {
		opt := &p.Options[i]
		quote := pricing.Quote(opt, tier, now)
		remaining := inCart.Remaining(p.ID, opt)
		fmt.Printf("  %-24s  %-20s  %10s  in cart: %d  left: %s\n",
			opt.ID, opt.Name.Resolve(a.lang), quote.Unit.StringFixed(2), inCart.InCart(p.ID, opt), remaining)
	}
	return nil
}

func (a *cli) add(ctx context.Context, productID, optionID string, qty int) error {
	p, err := a.client.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	opt := p.FindOption(optionID)
	if opt == nil {
		return fmt.Errorf("product %s has no option %s", productID, optionID)
	}
	if err := a.cart.Refresh(ctx); err != nil {
		return err
	}
	remaining := pricing.NewCartQuantities(a.cart.Snapshot().Lines).Remaining(p.ID, opt)
	if !pricing.CanAdd(opt, remaining) {
		return fmt.Errorf("%s is sold out", opt.Name.Resolve(a.lang))
	}
	if clamped := pricing.NewStepper(remaining).Clamp(qty); clamped != qty {
		fmt.Fprintf(os.Stderr, "only %d left, adding %d\n", clamped, clamped)
		qty = clamped
	}
	if err := a.cart.AddToCart(ctx, p, opt, qty); err != nil {
		return err
	}
	return a.printCart()
}

func (a *cli) login(ctx context.Context, username, password string) error {
	auth, err := a.client.Login(ctx, models.LoginRequest{Username: username, Password: password})
	if err != nil {
		return err
	}
	if err := a.store.SetToken(auth.Token); err != nil {
		return err
	}
	if err := a.cart.IdentityChanged(ctx); err != nil {
		return err
	}
	fmt.Printf("signed in as %s (%s)\n", username, auth.User.Tier())
	return a.printCart()
}

func (a *cli) printCart() error {
	shipping, total := a.checkout.Quote()
	cart := a.cart.Snapshot()
	return printJSON(map[string]interface{}{
		"items":       cart.Lines,
		"total_items": cart.TotalItemCount(),
		"subtotal":    cart.Subtotal,
		"shipping":    shipping,
		"total":       total,
	})
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
