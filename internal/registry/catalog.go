package registry

// defaultCatalog seeds the demo deployment. Paid articles all cost five
// cents, settled in the gate's configured stablecoin.
var defaultCatalog = []Entry{
	{
		ID:          "1",
		Title:       "The Future of Micropayments: How x402 is Revolutionizing Content Monetization",
		Subtitle:    "A deep dive into the HTTP 402 Payment Required protocol and its implications for creators",
		Author:      "Sarah Chen",
		Description: "Access to premium article: The Future of Micropayments",
		Price:       "0.05",
		Paid:        true,
		BaseClaps:   2847,
		Preview: `The internet was built with a payment layer in mind. HTTP status code 402 — "Payment Required" — has been reserved since 1999, waiting for the right technology to bring it to life.

The x402 protocol represents a paradigm shift in how we think about online content monetization. Instead of intrusive ads or expensive subscriptions, creators can now charge micro-amounts for individual pieces of content.`,
		Content: `The internet was built with a payment layer in mind. HTTP status code 402 — "Payment Required" — has been reserved since 1999, waiting for the right technology to bring it to life.

## Why Micropayments Matter

Traditional subscription models force users into all-or-nothing decisions. Micropayments solve this by enabling granular transactions: read one article for $0.25, access a premium feature for $0.10, pay exactly for what you use.

## How x402 Works

The server responds to an unauthenticated request with 402 Payment Required and machine-readable payment terms. The user's wallet satisfies the terms and the client retries with proof attached. No accounts, no card forms, no subscriptions.

## The Role of Stablecoins

USDC on networks like Base makes micropayments practical: sub-second finality and fees measured in fractions of a cent make a $0.05 article economically viable.`,
	},
	{
		ID:          "2",
		Title:       "Getting Started with Base: A Developer's Guide to Ethereum L2",
		Subtitle:    "Everything you need to know to start building on Coinbase's Layer 2 network",
		Author:      "Marcus Johnson",
		Description: "Access to premium article: Getting Started with Base",
		Price:       "0.05",
		Paid:        true,
		BaseClaps:   1923,
		Preview: `Base has emerged as one of the most developer-friendly Layer 2 networks in the Ethereum ecosystem. Built by Coinbase using the OP Stack, it offers the security of Ethereum with the speed and affordability developers need.`,
		Content: `Base has emerged as one of the most developer-friendly Layer 2 networks in the Ethereum ecosystem.

## Setting Up

Add Base Sepolia to your wallet: RPC https://sepolia.base.org, chain ID 84532. Get testnet ETH from a faucet and USDC from the Circle faucet.

## Interacting with USDC

USDC has 6 decimals, not 18. Users must approve your contract before it can transfer their USDC, and you should always verify the token address for your network.

## Best Practices

Test on Base Sepolia before mainnet, optimize gas even on L2, and verify your contracts on Basescan.`,
	},
	{
		ID:          "3",
		Title:       "Why I Switched from Subscription Models to Pay-Per-Article",
		Subtitle:    "A creator's perspective on the economics of micropayments",
		Author:      "Sarah Chen",
		Description: "Free article: Why I Switched from Subscription Models to Pay-Per-Article",
		Price:       "0",
		Paid:        false,
		BaseClaps:   4521,
		Preview: `After five years of running a subscription-based newsletter, I made a radical change: I switched to pay-per-article pricing. The results surprised me.`,
		Content: `After five years of running a subscription-based newsletter, I made a radical change: I switched to pay-per-article pricing.

## The Subscription Trap

Subscriptions optimize for retention, not value: guilt-driven consumption, churn anxiety, content padding.

## What Changed

Without the subscription barrier, readership tripled, popular articles out-earned their subscription equivalents, and payment itself became a signal of value.`,
	},
	{
		ID:          "4",
		Title:       "Designing for Web3: UX Patterns That Actually Work",
		Subtitle:    "How to create intuitive experiences in decentralized applications",
		Author:      "Elena Rodriguez",
		Description: "Access to premium article: Designing for Web3",
		Price:       "0.05",
		Paid:        true,
		BaseClaps:   3156,
		Preview: `Web3 has a UX problem. Complicated wallet connections, confusing transaction flows, and intimidating terminology drive away mainstream users. But it doesn't have to be this way.`,
		Content: `Web3 has a UX problem, and it is a design choice, not an inevitability.

## Progressive Disclosure

Show the action and the total cost; hide gas and network selection behind "Advanced".

## Clear Transaction States

Preparing, awaiting signature, submitted, confirming, complete, failed. Each state needs a distinct visual treatment and an explicit next step — especially failure, which should explain what happened in plain language and how to recover.`,
	},
	{
		ID:          "5",
		Title:       "Understanding USDC: The Stablecoin Powering Web3 Payments",
		Subtitle:    "A comprehensive guide to Circle's USD Coin and its role in the crypto ecosystem",
		Author:      "Marcus Johnson",
		Description: "Free article: Understanding USDC",
		Price:       "0",
		Paid:        false,
		BaseClaps:   1847,
		Preview: `Stablecoins are the backbone of the crypto economy, and USDC has emerged as the gold standard for payments.`,
		Content: `Stablecoins are the backbone of the crypto economy, and USDC has emerged as the gold standard for payments.

## How USDC Maintains Its Peg

A straightforward reserve model: each USDC is backed by $1 held in cash and short-term treasuries, with regular attestations.

## USDC in Micropayments

Credit-card rails bottom out around $0.30 per transaction. USDC on an L2 costs a fraction of a cent, which is what makes pay-per-article viable at all.`,
	},
}
