package vault

// vaultABIJSON is the consumed surface of the deployed vault contract.
//
// Function selectors:
//
//	getBalance()               → 0x12065fe0
//	isOwner(address)           → 0x2f54bf6e
//	owner()                    → 0x8da5cb5b
//	withdraw(address,uint256)  → 0xf3fef3a3
//
// Deposits are plain value transfers handled by receive().
const vaultABIJSON = `[
  {
    "type": "function", "name": "getBalance", "stateMutability": "view",
    "inputs": [],
    "outputs": [{"name": "", "type": "uint256"}]
  },
  {
    "type": "function", "name": "isOwner", "stateMutability": "view",
    "inputs": [{"name": "account", "type": "address"}],
    "outputs": [{"name": "", "type": "bool"}]
  },
  {
    "type": "function", "name": "owner", "stateMutability": "view",
    "inputs": [],
    "outputs": [{"name": "", "type": "address"}]
  },
  {
    "type": "function", "name": "withdraw", "stateMutability": "nonpayable",
    "inputs": [{"name": "to", "type": "address"}, {"name": "amount", "type": "uint256"}],
    "outputs": []
  },
  {
    "type": "receive", "stateMutability": "payable"
  }
]`
